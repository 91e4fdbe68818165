//go:build !windows

package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"tools.zach/dev/codecord/internal/paths"
)

// Address returns the control socket path for d.
func Address(d paths.DataDir) string { return d.Control() }

// Listen opens the control socket at addr, replacing a stale socket file
// left by a crashed daemon. The caller must hold the PID lock.
func Listen(addr string) (net.Listener, error) {
	if err := os.Remove(addr); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale control socket: %w", err)
	}
	ln, err := net.Listen("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on control socket: %w", err)
	}
	if err := os.Chmod(addr, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("restricting control socket: %w", err)
	}
	return ln, nil
}

// Dial connects to the control socket at addr.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", addr)
}
