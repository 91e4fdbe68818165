package editor

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"tools.zach/dev/codecord/internal/discord"
)

// Sink receives rendered activities. *presence.Controller implements it.
type Sink interface {
	SetActivity(a *discord.Activity)
}

// FollowOptions configures [Follow].
type FollowOptions struct {
	// Path is the editor state file.
	Path string
	// Workspace is used when the state file does not exist yet.
	Workspace string
	Builder   *Builder
	Sink      Sink
	// Watcher signals state file changes. Required.
	Watcher *Watcher
	// Interval re-renders periodically so idle timeouts take effect without a
	// file change. Zero disables it.
	Interval time.Duration
}

// Follow renders the state file into the sink on start, on every change and
// on every Interval tick until ctx ends. Unchanged activities are not
// forwarded.
func Follow(ctx context.Context, opts FollowOptions) {
	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var (
		last  string
		first = true
	)
	render := func() {
		a := opts.Builder.Build(loadState(opts.Path, opts.Workspace))
		h := Hash(a)
		if !first && h == last {
			return
		}
		first = false
		last = h
		opts.Sink.SetActivity(a)
	}

	render()
	for {
		select {
		case <-ctx.Done():
			return
		case <-opts.Watcher.Events():
			render()
		case <-tick:
			render()
		}
	}
}

// loadState reads the state file. A missing file yields an idle state for
// workspace; an unreadable one is logged and treated the same way.
func loadState(path, workspace string) *State {
	s, err := ReadState(path)
	if err == nil {
		if s.Workspace == "" {
			s.Workspace = workspace
		}
		return s
	}
	if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read editor state", "path", path, "error", err)
	}
	return &State{Version: CurrentVersion, Workspace: workspace}
}
