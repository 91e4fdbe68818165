// Package discord provides a client for Discord's local IPC socket,
// enabling Rich Presence updates via the SET_ACTIVITY command.
//
// The [Client] type manages the connection lifecycle, the READY handshake and
// a background reader that answers PING frames, surfaces ERROR events and
// reports link loss through [Client.Dropped]. Platform-specific socket
// discovery is handled by conn_unix.go and conn_windows.go.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotConnected is returned when an operation requires an active connection.
var ErrNotConnected = errors.New("not connected")

// ErrHandshakeRejected is returned when Discord answers the handshake with an
// ERROR event or closes the socket instead of sending READY.
var ErrHandshakeRejected = errors.New("handshake rejected")

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

const (
	// handshakeTimeout bounds the wait for READY when the caller's context has
	// no earlier deadline.
	handshakeTimeout = 10 * time.Second

	// closeTimeout bounds the best-effort activity clear sent on Close.
	closeTimeout = time.Second
)

// ///////////////////////////////////////////////
// Data Types
// ///////////////////////////////////////////////

// Button represents a clickable button in a Discord Rich Presence activity.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Timestamps holds the start timestamp for an activity.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
}

// Assets holds image keys and tooltip text for an activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity represents a Discord Rich Presence activity.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
}

// User is the Discord account reported in the READY event.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// message is the envelope shared by every command and event frame.
type message struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// errorData is the payload of an ERROR event or a CLOSE frame.
type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client manages a connection to Discord's IPC socket.
type Client struct {
	// appID is the Discord application (OAuth2 client) identifier.
	appID string
	// dial opens the raw IPC socket. Replaced in tests.
	dial func(ctx context.Context) (net.Conn, error)

	// mu protects conn, nonce and user from concurrent access.
	mu sync.Mutex
	// conn is the active IPC socket connection, or nil when disconnected.
	conn net.Conn
	// nonce is a monotonically increasing counter used to tag each command frame.
	nonce uint64
	// user is the account from the last READY event.
	user User

	// dropped receives a value when the active link is lost without Close.
	dropped chan struct{}
}

// NewClient creates a new Discord IPC client for the given application ID.
func NewClient(appID string) *Client {
	return &Client{
		appID:   appID,
		dial:    connectToDiscord,
		dropped: make(chan struct{}, 1),
	}
}

// Connect establishes a fresh connection to Discord and completes the READY
// handshake. Any existing connection is closed first, so calling Connect on a
// linked client re-logs it. The context bounds both the dial and the handshake.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Close old connection if reconnecting.
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	user, err := c.handshake(ctx, conn)
	if err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.user = user
	slog.Debug("discord ready", "user", user.Username, "app_id", c.appID)

	go c.readLoop(conn)
	return nil
}

// SetActivity sends a SET_ACTIVITY command to Discord. A nil activity clears
// the presence.
func (c *Client) SetActivity(ctx context.Context, activity *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sendCommand(ctx, "SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": activity,
	})
}

// ClearActivity sends a SET_ACTIVITY command with a nil activity.
func (c *Client) ClearActivity(ctx context.Context) error {
	return c.SetActivity(ctx, nil)
}

// Close clears the activity and closes the connection. Closing an
// unconnected client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	// Best-effort clear before closing.
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	_ = c.sendCommand(ctx, "SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": nil,
	})
	cancel()

	err := c.conn.Close()
	c.conn = nil
	c.user = User{}
	return err
}

// Connected reports whether the client has an active connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// User returns the account reported by Discord for the current link.
func (c *Client) User() User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Dropped returns a channel that receives a value whenever the active link is
// lost without a call to Close (Discord quit, socket error, CLOSE frame).
func (c *Client) Dropped() <-chan struct{} {
	return c.dropped
}

// ///////////////////////////////////////////////
// Internals
// ///////////////////////////////////////////////

// bindDeadline makes blocking I/O on conn respect ctx. The returned func must
// be called once the I/O is done.
func bindDeadline(ctx context.Context, conn net.Conn) func() {
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	return func() {
		stop()
		conn.SetDeadline(time.Time{})
	}
}

// handshake sends the initial handshake frame and waits for READY.
func (c *Client) handshake(ctx context.Context, conn net.Conn) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	release := bindDeadline(ctx, conn)
	defer release()

	payload, err := json.Marshal(map[string]any{
		"v":         1,
		"client_id": c.appID,
	})
	if err != nil {
		return User{}, fmt.Errorf("marshaling handshake: %w", err)
	}
	if err := WriteFrame(conn, OpHandshake, payload); err != nil {
		return User{}, ctxErr(ctx, err)
	}

	frame, err := ReadFrame(conn)
	if err != nil {
		return User{}, ctxErr(ctx, fmt.Errorf("reading handshake response: %w", err))
	}

	switch frame.Op {
	case OpFrame:
	case OpClose:
		var ed errorData
		_ = json.Unmarshal(frame.Payload, &ed)
		return User{}, fmt.Errorf("%w: closed with code %d: %s", ErrHandshakeRejected, ed.Code, ed.Message)
	default:
		return User{}, fmt.Errorf("unexpected handshake response opcode: %s", frame.Op)
	}

	var msg message
	if err := json.Unmarshal(frame.Payload, &msg); err != nil {
		return User{}, fmt.Errorf("parsing handshake response: %w", err)
	}
	switch msg.Evt {
	case "READY":
		var ready struct {
			User User `json:"user"`
		}
		if len(msg.Data) > 0 {
			_ = json.Unmarshal(msg.Data, &ready)
		}
		return ready.User, nil
	case "ERROR":
		var ed errorData
		_ = json.Unmarshal(msg.Data, &ed)
		return User{}, fmt.Errorf("%w: %s", ErrHandshakeRejected, ed.Message)
	default:
		return User{}, fmt.Errorf("unexpected handshake event %q", msg.Evt)
	}
}

// ctxErr prefers the context error when the I/O failed because ctx ended.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// sendCommand writes a command frame to the IPC connection.
// The caller must hold c.mu.
func (c *Client) sendCommand(ctx context.Context, cmd string, args map[string]any) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.nonce++
	nonce := strconv.FormatUint(c.nonce, 10)

	payload, err := json.Marshal(map[string]any{
		"cmd":   cmd,
		"args":  args,
		"nonce": nonce,
	})
	if err != nil {
		return fmt.Errorf("marshaling command: %w", err)
	}

	release := bindDeadline(ctx, c.conn)
	defer release()
	if err := WriteFrame(c.conn, OpFrame, payload); err != nil {
		return ctxErr(ctx, fmt.Errorf("sending %s: %w", cmd, err))
	}
	return nil
}

// readLoop consumes frames from conn until it fails. It answers PING, logs
// ERROR events and reports the loss of conn when it is still the active link.
func (c *Client) readLoop(conn net.Conn) {
	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			c.drop(conn, "read failed", err)
			return
		}

		switch frame.Op {
		case OpPing:
			c.mu.Lock()
			if c.conn == conn {
				if err := WriteFrame(conn, OpPong, frame.Payload); err != nil {
					slog.Debug("failed to answer discord ping", "error", err)
				}
			}
			c.mu.Unlock()
		case OpClose:
			var ed errorData
			_ = json.Unmarshal(frame.Payload, &ed)
			c.drop(conn, "closed by discord", fmt.Errorf("code %d: %s", ed.Code, ed.Message))
			return
		case OpFrame:
			c.handleEvent(frame.Payload)
		}
	}
}

// handleEvent logs command responses and events received after READY.
func (c *Client) handleEvent(payload []byte) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		slog.Debug("unparseable discord frame", "error", err)
		return
	}
	if msg.Evt == "ERROR" {
		var ed errorData
		_ = json.Unmarshal(msg.Data, &ed)
		slog.Warn("discord rejected command", "cmd", msg.Cmd, "nonce", msg.Nonce, "code", ed.Code, "message", ed.Message)
		return
	}
	slog.Debug("discord response", "cmd", msg.Cmd, "evt", msg.Evt, "nonce", msg.Nonce)
}

// drop retires conn if it is still the active link and signals Dropped. A
// conn already replaced or closed through Close is ignored.
func (c *Client) drop(conn net.Conn, reason string, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn.Close()
	c.conn = nil
	c.user = User{}
	c.mu.Unlock()

	slog.Info("discord link lost", "reason", reason, "error", cause)
	select {
	case c.dropped <- struct{}{}:
	default:
	}
}
