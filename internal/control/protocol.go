// Package control implements the local control channel between the editor
// (or the codecord CLI) and the daemon. Each connection carries one JSON
// request line and one JSON response line.
package control

import (
	"errors"

	"tools.zach/dev/codecord/internal/presence"
)

// ErrUnknownCommand is returned when the daemon does not recognize a command.
var ErrUnknownCommand = presence.ErrUnknownCommand

// ErrDaemonNotRunning is returned by Send when nothing listens on the address.
var ErrDaemonNotRunning = errors.New("daemon not running")

// maxLineSize bounds a single request or response line.
const maxLineSize = 64 << 10

// Request is one command sent to the daemon.
type Request struct {
	// ID correlates the request with daemon log lines.
	ID      string `json:"id"`
	Command string `json:"command"`
}

// Response is the daemon's answer to a [Request].
type Response struct {
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Message string          `json:"message,omitempty"`
	Notify  bool            `json:"notify"`
	Status  presence.Status `json:"status"`
	// Error is set when OK is false.
	Error string `json:"error,omitempty"`
	// Code classifies Error. "unknown_command" maps to ErrUnknownCommand.
	Code string `json:"code,omitempty"`
}

const (
	codeUnknownCommand = "unknown_command"
	codeBadRequest     = "bad_request"
)
