package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"tools.zach/dev/codecord/internal/discord"
	"tools.zach/dev/codecord/internal/logger"
)

// ///////////////////////////////////////////////
// Dependencies
// ///////////////////////////////////////////////

// Transport is the link to Discord. *discord.Client implements it.
type Transport interface {
	// Connect opens a fresh link, closing any existing one first.
	Connect(ctx context.Context) error
	// SetActivity publishes a, or clears the presence when a is nil.
	SetActivity(ctx context.Context, a *discord.Activity) error
	// Close tears the link down. Closing an idle transport is a no-op.
	Close() error
	// Connected reports whether a link is open.
	Connected() bool
	// Dropped signals a link lost without Close.
	Dropped() <-chan struct{}
}

// IntentWriter persists the user's enabled/disabled choice.
type IntentWriter interface {
	SetEnabled(ctx context.Context, enabled bool) error
}

// Options configures [New].
type Options struct {
	// Transport is required.
	Transport Transport
	// Intent receives persisted intent changes. Nil disables persistence.
	Intent IntentWriter
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Debounce is the quiet period before an activity is sent. Zero means
	// DefaultDebounce; a negative value sends immediately.
	Debounce time.Duration
	// Limiter throttles activity sends. Defaults to NewActivityLimiter().
	Limiter *rate.Limiter
}

// ///////////////////////////////////////////////
// Controller
// ///////////////////////////////////////////////

// Controller owns the presence session: its state, the transport link, the
// status indicator and the activity scheduler. All methods are safe for
// concurrent use. The internal mutex is never held across Transport.Connect.
type Controller struct {
	transport Transport
	intent    IntentWriter
	log       *slog.Logger
	sched     *scheduler

	mu    sync.Mutex
	state State
	// indicator reflects the last attempted transition.
	indicator IndicatorSnapshot
	// gen is bumped by every transition so late connect results can be
	// recognized as stale.
	gen uint64
	// cancelConnect aborts the in-flight connect attempt, if any.
	cancelConnect context.CancelFunc
	// activity is the latest activity reported by the editor.
	activity    *discord.Activity
	hasActivity bool
}

// New creates a controller in the Disabled state.
func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	delay := opts.Debounce
	switch {
	case delay == 0:
		delay = DefaultDebounce
	case delay < 0:
		delay = 0
	}

	c := &Controller{
		transport: opts.Transport,
		intent:    opts.Intent,
		log:       log,
		state:     Disabled,
		indicator: indicatorHidden,
	}
	c.sched = newScheduler(opts.Transport.SetActivity, opts.Limiter, delay, log)
	return c
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Indicator returns a copy of the status indicator.
func (c *Controller) Indicator() IndicatorSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indicator
}

// Generation returns the transition counter.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// ///////////////////////////////////////////////
// Transitions
// ///////////////////////////////////////////////

// Enable turns presence reporting on. When persist is set the enabled intent
// is saved first; a save failure is logged and ignored. The indicator shows
// the connecting presentation before the transport is contacted. Enable
// returns once the connect attempt has settled.
func (c *Controller) Enable(ctx context.Context, persist bool) {
	if persist {
		c.persist(ctx, true)
	}
	c.enable(ctx, false)
}

// Reconnect forces a fresh connect and handshake, replacing any open link.
func (c *Controller) Reconnect(ctx context.Context) {
	c.log.Info(msgReconnecting)
	c.enable(ctx, true)
}

func (c *Controller) enable(ctx context.Context, force bool) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.abortConnectLocked()

	if !force && c.state == Connected && c.transport.Connected() {
		c.indicator = indicatorConnected
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	c.state = Connecting
	c.indicator = indicatorConnecting
	attemptCtx, cancel := context.WithCancel(ctx)
	c.cancelConnect = cancel
	c.mu.Unlock()

	c.log.Info(msgEnabling, "generation", gen, "forced", force)
	err := c.transport.Connect(attemptCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.log.Debug(msgStaleDiscarded, "generation", gen, "current", c.gen, "state", c.state, "error", err)
		if err == nil && (c.state == Disabled || c.state == DisconnectedFailed) {
			if cerr := c.transport.Close(); cerr != nil {
				c.log.Debug("failed to close superseded link", "error", cerr)
			}
		}
		return
	}
	c.cancelConnect = nil

	if err != nil {
		c.state = DisconnectedFailed
		c.indicator = indicatorReconnect
		logger.Fail(ctx, c.log, msgConnectFailed, "error", err)
		return
	}

	// The drop signal is ignored while Connecting, so a link lost right
	// after the handshake is caught here.
	if !c.transport.Connected() {
		c.state = DisconnectedFailed
		c.indicator = indicatorReconnect
		c.log.Warn(msgLinkDropped, "generation", gen, "during", "connect")
		return
	}

	c.state = Connected
	c.indicator = indicatorConnected
	c.log.Info(msgConnected, "generation", gen)
	c.publishLocked()
}

// Disable turns presence reporting off. When persist is set the disabled
// intent is saved first; a save failure is logged and ignored. On return no
// link is open and the indicator is hidden.
func (c *Controller) Disable(ctx context.Context, persist bool) {
	if persist {
		c.persist(ctx, false)
	}
	c.CleanUp()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.retireLocked()
	c.state = Disabled
	c.indicator = indicatorHidden
	c.log.Info(msgDestroyed)
}

// Disconnect closes the link and leaves the reconnect affordance visible.
func (c *Controller) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retireLocked()
	c.state = DisconnectedFailed
	c.indicator = indicatorReconnect
	c.log.Info(msgDisconnected)
}

// Destroy clears pending work, aborts any connect and closes the link. It is
// safe to call from any state and more than once.
func (c *Controller) Destroy(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retireLocked()
	c.state = Disabled
	c.indicator = indicatorHidden
	c.log.Info(msgSessionClosed, "generation", c.gen)
}

// CleanUp drops scheduled and in-flight activity updates without touching
// the link.
func (c *Controller) CleanUp() {
	c.sched.Clear()
}

// SetActivity records the latest editor activity and schedules it for
// publishing while connected. A nil activity clears the presence.
func (c *Controller) SetActivity(a *discord.Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activity = a
	c.hasActivity = true
	if c.state == Connected {
		c.sched.Push(a)
	}
}

// Run watches the transport for dropped links until ctx ends. A drop while
// Connected moves the controller to DisconnectedFailed.
func (c *Controller) Run(ctx context.Context) {
	dropped := c.transport.Dropped()
	for {
		select {
		case <-ctx.Done():
			return
		case <-dropped:
			c.handleDrop()
		}
	}
}

func (c *Controller) handleDrop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A drop signal may be stale when a reconnect already replaced the link.
	if c.state != Connected || c.transport.Connected() {
		return
	}
	c.gen++
	c.sched.Clear()
	c.state = DisconnectedFailed
	c.indicator = indicatorReconnect
	c.log.Warn(msgLinkDropped, "generation", c.gen)
}

// ///////////////////////////////////////////////
// Internals
// ///////////////////////////////////////////////

// retireLocked invalidates in-flight work and closes the link. The caller
// must hold c.mu.
func (c *Controller) retireLocked() {
	c.gen++
	c.abortConnectLocked()
	c.sched.Clear()
	if err := c.transport.Close(); err != nil {
		c.log.Debug("failed to close discord link", "error", err)
	}
}

// abortConnectLocked cancels the in-flight connect. The caller must hold c.mu.
func (c *Controller) abortConnectLocked() {
	if c.cancelConnect != nil {
		c.cancelConnect()
		c.cancelConnect = nil
	}
}

// publishLocked schedules the last known activity. The caller must hold c.mu.
func (c *Controller) publishLocked() {
	if c.hasActivity {
		c.sched.Push(c.activity)
	}
}

// persist saves the intent, logging and swallowing any failure.
func (c *Controller) persist(ctx context.Context, enabled bool) {
	if c.intent == nil {
		return
	}
	if err := c.intent.SetEnabled(ctx, enabled); err != nil {
		c.log.Debug("failed to persist presence intent", "enabled", enabled, "error", err)
	}
}
