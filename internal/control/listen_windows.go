//go:build windows

package control

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	"tools.zach/dev/codecord/internal/paths"
)

// pipeSecurity grants access to the pipe owner only.
const pipeSecurity = "D:P(A;;GA;;;OW)"

// Address returns the control named pipe for d.
func Address(d paths.DataDir) string { return d.PipeName() }

// Listen opens the control named pipe at addr.
func Listen(addr string) (net.Listener, error) {
	ln, err := winio.ListenPipe(addr, &winio.PipeConfig{SecurityDescriptor: pipeSecurity})
	if err != nil {
		return nil, fmt.Errorf("listening on control pipe: %w", err)
	}
	return ln, nil
}

// Dial connects to the control named pipe at addr.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, addr)
}
