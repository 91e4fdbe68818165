package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	codecord "tools.zach/dev/codecord"
	"tools.zach/dev/codecord/internal/config"
	"tools.zach/dev/codecord/internal/control"
	"tools.zach/dev/codecord/internal/discord"
	"tools.zach/dev/codecord/internal/editor"
	"tools.zach/dev/codecord/internal/logger"
	"tools.zach/dev/codecord/internal/presence"
	"tools.zach/dev/codecord/internal/update"
)

const (
	// followInterval re-renders the editor state so the idle timeout takes
	// effect without a file change.
	followInterval = 30 * time.Second
	// deactivateTimeout bounds teardown after a shutdown signal.
	deactivateTimeout = 5 * time.Second
)

// daemonOptions configures [runDaemon].
type daemonOptions struct {
	paths DataPaths
	// workspace is the absolute workspace folder.
	workspace string
	// echo receives a copy of every log line. Nil logs to the file only.
	echo io.Writer
}

func newDaemonCmd(root *rootOptions, out *output) *cobra.Command {
	var (
		workspace  string
		foreground bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the presence daemon for a workspace",
		Long: `Run the presence daemon for a workspace.

The daemon connects to the local Discord client, follows the editor state
file in the data directory and serves the control socket used by the other
commands. It stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := filepath.Abs(workspace)
			if err != nil {
				return fmt.Errorf("resolving workspace: %w", err)
			}
			opts := daemonOptions{paths: root.paths(), workspace: ws}
			if foreground {
				opts.echo = out.err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()
			return runDaemon(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "Workspace folder the presence is reported for")
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Mirror the log to stderr")
	return cmd
}

// runDaemon runs until ctx ends, then deactivates the session.
func runDaemon(ctx context.Context, opts daemonOptions) error {
	d := opts.paths
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	token := pidToken()
	pidFile, err := acquirePID(d, token)
	if err != nil {
		return err
	}
	defer removePID(d, token, pidFile)

	seedConfig(d)
	cfg, err := config.Load(d.Root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logCloser, err := logger.NewLogger(logger.Options{
		Path:      d.Log(),
		Level:     logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Echo:      opts.echo,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("codecord starting", "version", ver, "data_dir", d.Root, "workspace", opts.workspace)

	id, err := config.ResolveApplicationID(cfg)
	if err != nil {
		slog.Error("cannot start without a discord application", "error", err)
		return err
	}
	slog.Info("resolved discord application", "app", id.App, "client_id", id.ClientID)

	client := discord.NewClient(id.ClientID)
	intent := config.NewIntentStore(d.Workspaces(), opts.workspace, cfg.Presence.Enabled)
	ctrl := presence.New(presence.Options{
		Transport: client,
		Intent:    intent,
		Logger:    log,
		Debounce:  debounce(cfg.Presence.UpdateDebounceMS),
	})
	cmds := presence.NewCommands(presence.CommandsOptions{
		Controller:            ctrl,
		Intent:                intent,
		Notifier:              logNotifier{log: log},
		SuppressNotifications: cfg.Presence.SuppressNotifications,
		Logger:                log,
	})

	watcher, err := editor.NewWatcher(d.Editor())
	if err != nil {
		return fmt.Errorf("watch editor state: %w", err)
	}
	defer watcher.Close()
	if watcher.Polling() {
		slog.Info("using polling mode for file watching")
	}

	ln, err := control.Listen(control.Address(d))
	if err != nil {
		return err
	}
	srv := control.NewServer(ln, cmds, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	goSafe(&wg, "presence loop", func() { ctrl.Run(runCtx) })
	goSafe(&wg, "control server", func() {
		if err := srv.Serve(runCtx); err != nil {
			slog.Error("control server stopped", "error", err)
			cancel()
		}
	})
	goSafe(nil, "update check", func() { update.LogCheck(runCtx, ver) })

	cmds.Activate(runCtx)

	goSafe(&wg, "editor follower", func() {
		editor.Follow(runCtx, editor.FollowOptions{
			Path:      d.Editor(),
			Workspace: opts.workspace,
			Builder:   editor.NewBuilder(cfg, id),
			Sink:      ctrl,
			Watcher:   watcher,
			Interval:  followInterval,
		})
	})

	<-runCtx.Done()
	slog.Info("shutting down")
	srv.Close()
	wg.Wait()

	dctx, dcancel := context.WithTimeout(context.Background(), deactivateTimeout)
	defer dcancel()
	cmds.Deactivate(dctx)
	return nil
}

// goSafe runs fn in a goroutine, logging instead of crashing on panic. wg may
// be nil for goroutines the caller does not wait for.
func goSafe(wg *sync.WaitGroup, name string, fn func()) {
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer func() {
			if r := recover(); r != nil {
				slog.Error(name+" panic", "error", r)
			}
		}()
		fn()
	}()
}

// seedConfig writes the embedded default config on first run.
func seedConfig(d DataPaths) {
	if _, err := os.Stat(d.Config()); !errors.Is(err, os.ErrNotExist) {
		return
	}
	if err := os.WriteFile(d.Config(), codecord.DefaultConfigTOML, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", err)
	}
}

// debounce converts presence.update_debounce_ms. Zero sends immediately.
func debounce(ms int) time.Duration {
	if ms <= 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}

// logNotifier records user-facing messages in the daemon log. The CLI prints
// them from the control response.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Notify(_ context.Context, msg string) error {
	n.log.Info("notification", "message", msg)
	return nil
}
