package presence

// IndicatorSnapshot is a copy of the status indicator as the editor should
// render it.
type IndicatorSnapshot struct {
	// Text is the status bar label, including the icon prefix.
	Text string `json:"text"`
	// Tooltip is shown on hover.
	Tooltip string `json:"tooltip"`
	// Command is the rpc.* command bound to a click, or empty.
	Command string `json:"command,omitempty"`
	// Visible reports whether the indicator is shown at all.
	Visible bool `json:"visible"`
}

// Presentations the controller moves the indicator between.
var (
	indicatorHidden = IndicatorSnapshot{}

	indicatorConnecting = IndicatorSnapshot{
		Text:    "$(search-refresh) Connecting to Discord Gateway...",
		Tooltip: "Connecting to Discord Gateway...",
		Visible: true,
	}

	indicatorConnected = IndicatorSnapshot{
		Text:    "$(globe) Connected to Discord",
		Tooltip: "Connected to Discord Gateway. Click to disconnect.",
		Command: CmdDisconnect,
		Visible: true,
	}

	indicatorReconnect = IndicatorSnapshot{
		Text:    "$(search-refresh) Reconnect to Discord Gateway",
		Tooltip: "Reconnect to Discord Gateway",
		Command: CmdReconnect,
		Visible: true,
	}
)
