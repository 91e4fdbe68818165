package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Client sends commands to a running daemon.
type Client struct {
	addr string
	// dial is replaced in tests.
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

// NewClient returns a client for the control address (see [Address]).
func NewClient(addr string) *Client {
	return &Client{addr: addr, dial: Dial}
}

// Send delivers command and waits for the daemon's response. A failed
// command is returned as an error; ErrUnknownCommand and ErrDaemonNotRunning
// can be matched with errors.Is.
func (c *Client) Send(ctx context.Context, command string) (Response, error) {
	conn, err := c.dial(ctx, c.addr)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, err
		}
		return Response{}, fmt.Errorf("%w: %w", ErrDaemonNotRunning, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	req := Request{ID: uuid.NewString(), Command: command}
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return Response{}, wrapCtx(ctx, fmt.Errorf("sending request: %w", err))
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	if !scanner.Scan() {
		err := scanner.Err()
		if err == nil {
			err = errors.New("connection closed without a response")
		}
		return Response{}, wrapCtx(ctx, fmt.Errorf("reading response: %w", err))
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("decoding response: %w", err)
	}
	if resp.ID != req.ID {
		return resp, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if !resp.OK {
		if resp.Code == codeUnknownCommand {
			return resp, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
		}
		return resp, fmt.Errorf("daemon: %s", resp.Error)
	}
	return resp, nil
}

func wrapCtx(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}
