// conn_windows.go dials Discord's named pipes (\\.\pipe\discord-ipc-N)
// through go-winio.

//go:build windows

package discord

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// ///////////////////////////////////////////////
// Connection
// ///////////////////////////////////////////////

// connectToDiscord tries each Discord named pipe slot and returns the first
// successful connection. It stops early when ctx ends.
func connectToDiscord(ctx context.Context) (net.Conn, error) {
	for i := range maxIPCSlots {
		conn, err := winio.DialPipeContext(ctx, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
		if err == nil {
			return conn, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ctxErr, ErrIPCNotAvailable)
		}
	}
	return nil, ErrIPCNotAvailable
}
