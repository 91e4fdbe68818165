// Package presence owns the lifecycle of the single logical link between the
// editor session and Discord. The [Controller] reconciles user intent with the
// transport's actual state, keeps the status [IndicatorSnapshot] consistent
// with the last attempted transition and throttles activity updates. The
// [Commands] type maps the editor's rpc.* commands onto controller
// operations.
package presence

import "fmt"

// State is the controller's session state.
type State int

const (
	// Disabled means presence reporting is off and no link is open.
	Disabled State = iota
	// Connecting means a connect attempt is in flight.
	Connecting
	// Connected means the transport is linked and activity is published.
	Connected
	// DisconnectedFailed means the last attempt failed, the link dropped or
	// the user disconnected. Recovery requires a reconnect.
	DisconnectedFailed
)

var stateNames = [...]string{
	Disabled:           "disabled",
	Connecting:         "connecting",
	Connected:          "connected",
	DisconnectedFailed: "disconnected-failed",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown presence state %q", b)
}
