package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tools.zach/dev/codecord/internal/config"
)

// ///////////////////////////////////////////////
// Command Names
// ///////////////////////////////////////////////

const (
	CmdEnable           = "rpc.enable"
	CmdDisable          = "rpc.disable"
	CmdEnableWorkspace  = "rpc.enableWorkspace"
	CmdDisableWorkspace = "rpc.disableWorkspace"
	CmdReconnect        = "rpc.reconnect"
	CmdDisconnect       = "rpc.disconnect"
	CmdStatus           = "rpc.status"
)

// CommandNames lists every command Dispatch accepts.
var CommandNames = []string{
	CmdEnable,
	CmdDisable,
	CmdEnableWorkspace,
	CmdDisableWorkspace,
	CmdReconnect,
	CmdDisconnect,
	CmdStatus,
}

// ErrUnknownCommand is returned by Dispatch for names not in CommandNames.
var ErrUnknownCommand = errors.New("unknown command")

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Notifier shows an informational message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// IntentStore is the persisted intent for the current workspace.
// *config.IntentStore implements it.
type IntentStore interface {
	IntentWriter
	Intent() (config.Intent, error)
}

// Status is a point-in-time view of the session.
type Status struct {
	State      State             `json:"state"`
	Indicator  IndicatorSnapshot `json:"indicator"`
	Generation uint64            `json:"generation"`
	// Enabled is the effective persisted intent.
	Enabled bool `json:"enabled"`
}

// Result is the outcome of a dispatched command.
type Result struct {
	// Message describes what happened.
	Message string `json:"message"`
	// Notify is set when Message should be shown to the user.
	Notify bool `json:"notify"`
	// Status is the session after the command ran.
	Status Status `json:"status"`
}

// CommandsOptions configures [NewCommands].
type CommandsOptions struct {
	Controller *Controller
	// Intent persists workspace-scoped choices and answers Activate.
	Intent IntentStore
	// Notifier receives user-facing messages. Optional.
	Notifier Notifier
	// SuppressNotifications mirrors presence.suppress_notifications.
	SuppressNotifications bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Commands maps rpc.* command names onto controller operations.
type Commands struct {
	ctrl     *Controller
	intent   IntentStore
	notifier Notifier
	suppress bool
	log      *slog.Logger
}

// NewCommands wires the command layer to a controller.
func NewCommands(opts CommandsOptions) *Commands {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Commands{
		ctrl:     opts.Controller,
		intent:   opts.Intent,
		notifier: opts.Notifier,
		suppress: opts.SuppressNotifications,
		log:      log,
	}
}

// ///////////////////////////////////////////////
// Lifecycle
// ///////////////////////////////////////////////

// Activate starts the session according to the persisted intent.
func (c *Commands) Activate(ctx context.Context) {
	enabled := c.enabled()
	c.log.Info("discord rich presence activated", "enabled", enabled)
	if !enabled {
		c.ctrl.Disable(ctx, false)
		return
	}
	c.ctrl.Enable(ctx, false)
}

// Deactivate tears the session down unconditionally.
func (c *Commands) Deactivate(ctx context.Context) {
	c.log.Info("discord rich presence deactivated")
	c.ctrl.Destroy(ctx)
	c.log.Info(msgDeactivated)
}

// ///////////////////////////////////////////////
// Dispatch
// ///////////////////////////////////////////////

// Dispatch runs the named command. Only an unknown name produces an error;
// failures inside a known command are reflected in the returned status.
func (c *Commands) Dispatch(ctx context.Context, name string) (Result, error) {
	var (
		msg    string
		notify bool
	)

	switch name {
	case CmdEnable:
		c.ctrl.Disable(ctx, false)
		c.ctrl.Enable(ctx, false)
		msg, notify = "Enabled Discord Rich Presence.", true
	case CmdDisable:
		c.ctrl.Disable(ctx, false)
		msg, notify = "Disabled Discord Rich Presence.", true
	case CmdEnableWorkspace:
		c.ctrl.Disable(ctx, true)
		c.ctrl.Enable(ctx, true)
		msg, notify = "Enabled Discord Rich Presence for this workspace.", true
	case CmdDisableWorkspace:
		c.ctrl.Disable(ctx, true)
		msg, notify = "Disabled Discord Rich Presence for this workspace.", true
	case CmdReconnect:
		c.log.Info("reconnecting to discord gateway")
		c.ctrl.Reconnect(ctx)
		msg = "Reconnected to Discord Gateway."
		if c.ctrl.State() != Connected {
			msg = "Could not reach Discord Gateway."
		}
	case CmdDisconnect:
		c.log.Info("disconnecting from discord gateway")
		c.ctrl.Disconnect(ctx)
		msg = "Disconnected from Discord Gateway."
	case CmdStatus:
		st := c.Status()
		msg = fmt.Sprintf("Discord Rich Presence is %s.", st.State)
		return Result{Message: msg, Status: st}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	c.log.Info("command handled", "command", name, "message", msg)
	if notify && !c.suppress {
		c.notify(ctx, msg)
	} else {
		notify = false
	}
	return Result{Message: msg, Notify: notify, Status: c.Status()}, nil
}

// Status reports the current session.
func (c *Commands) Status() Status {
	return Status{
		State:      c.ctrl.State(),
		Indicator:  c.ctrl.Indicator(),
		Generation: c.ctrl.Generation(),
		Enabled:    c.enabled(),
	}
}

// enabled resolves the effective intent. A read failure falls back to what
// the store could resolve.
func (c *Commands) enabled() bool {
	if c.intent == nil {
		return true
	}
	in, err := c.intent.Intent()
	if err != nil {
		c.log.Warn("failed to read presence intent", "error", err)
	}
	return in.Enabled()
}

func (c *Commands) notify(ctx context.Context, msg string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, msg); err != nil {
		c.log.Debug("failed to show notification", "error", err)
	}
}
