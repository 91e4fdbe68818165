package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"tools.zach/dev/codecord/internal/presence"
)

// requestTimeout bounds how long a client may take to send its request.
const requestTimeout = 5 * time.Second

// Dispatcher runs a named command. *presence.Commands implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string) (presence.Result, error)
}

// Server accepts control connections and dispatches their commands.
type Server struct {
	ln  net.Listener
	d   Dispatcher
	log *slog.Logger

	// wg tracks connection handlers.
	wg sync.WaitGroup
	// once ensures Close is idempotent.
	once sync.Once
	// closeErr is the listener close result.
	closeErr error
}

// NewServer returns a server that dispatches commands from ln to d.
func NewServer(ln net.Listener, d Dispatcher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{ln: ln, d: d, log: log}
}

// Addr returns the listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx ends or Close is called. It waits for
// in-flight handlers before returning.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting control connection: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// Close stops accepting connections. Calling it more than once is safe.
func (s *Server) Close() error {
	s.once.Do(func() {
		s.closeErr = s.ln.Close()
	})
	return s.closeErr
}

// handle serves one request on conn.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(requestTimeout))
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			s.log.Debug("control request unreadable", "error", err)
		}
		return
	}
	conn.SetReadDeadline(time.Time{})

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil || req.Command == "" {
		s.reply(conn, Response{ID: req.ID, Error: "malformed request", Code: codeBadRequest})
		return
	}

	s.log.Info("control request", "id", req.ID, "command", req.Command)
	res, err := s.d.Dispatch(ctx, req.Command)
	resp := Response{ID: req.ID}
	switch {
	case errors.Is(err, ErrUnknownCommand):
		resp.Error, resp.Code = err.Error(), codeUnknownCommand
	case err != nil:
		resp.Error = err.Error()
	default:
		resp.OK = true
		resp.Message = res.Message
		resp.Notify = res.Notify
		resp.Status = res.Status
	}
	s.reply(conn, resp)
}

func (s *Server) reply(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("failed to encode control response", "id", resp.ID, "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.log.Debug("failed to write control response", "id", resp.ID, "error", err)
	}
}
