package presence

// Lifecycle log messages. The numeric prefixes are stable so the log can be
// grepped across releases.
const (
	msgEnabling       = "[001] presence enabling"
	msgConnected      = "[002] presence connected"
	msgDestroyed      = "[003] destroyed discord rpc client"
	msgDeactivated    = "[004] destroyed discord rpc client on deactivate"
	msgConnectFailed  = "[005] presence connect failed"
	msgDisconnected   = "[006] presence disconnected"
	msgReconnecting   = "[007] presence reconnecting"
	msgLinkDropped    = "[008] discord link dropped"
	msgStaleDiscarded = "[009] stale connect result discarded"
	msgSessionClosed  = "[010] presence session destroyed"
)
