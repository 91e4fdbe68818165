package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"tools.zach/dev/codecord/internal/control"
	"tools.zach/dev/codecord/internal/editor"
	"tools.zach/dev/codecord/internal/logger"
	"tools.zach/dev/codecord/internal/presence"
	"tools.zach/dev/codecord/internal/remote"
	"tools.zach/dev/codecord/internal/update"
)

// commandTimeout covers a full Discord handshake on enable or reconnect.
const commandTimeout = 20 * time.Second

// ///////////////////////////////////////////////
// Control Commands
// ///////////////////////////////////////////////

// controlSpec maps a CLI subcommand to a daemon command.
type controlSpec struct {
	use     string
	command string
	short   string
}

var controlCommands = []controlSpec{
	{"enable", presence.CmdEnable, "Enable Discord Rich Presence"},
	{"disable", presence.CmdDisable, "Disable Discord Rich Presence"},
	{"enable-workspace", presence.CmdEnableWorkspace, "Enable Discord Rich Presence for this workspace"},
	{"disable-workspace", presence.CmdDisableWorkspace, "Disable Discord Rich Presence for this workspace"},
	{"reconnect", presence.CmdReconnect, "Reconnect to the Discord client"},
	{"disconnect", presence.CmdDisconnect, "Disconnect from the Discord client"},
	{"status", presence.CmdStatus, "Show the presence session state"},
}

func newControlCmd(root *rootOptions, out *output, spec controlSpec) *cobra.Command {
	return &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			client := control.NewClient(control.Address(root.paths()))
			resp, err := client.Send(ctx, spec.command)
			if err != nil {
				return err
			}
			return printResponse(out, spec.command, resp)
		},
	}
}

// printResponse renders a daemon response. Toggle confirmations are printed
// only when the daemon asks for a notification.
func printResponse(out *output, command string, resp control.Response) error {
	switch command {
	case presence.CmdStatus:
		printStatus(out, resp.Status)
		return nil
	case presence.CmdReconnect:
		if resp.Status.State != presence.Connected {
			return errors.New(strings.TrimSuffix(resp.Message, "."))
		}
	}
	if resp.Notify {
		out.Success("%s", resp.Message)
	}
	return nil
}

func printStatus(out *output, st presence.Status) {
	state := st.State.String()
	switch st.State {
	case presence.Connected:
		state = out.success.Sprint(state)
	case presence.DisconnectedFailed:
		state = out.failure.Sprint(state)
	case presence.Connecting:
		state = out.warning.Sprint(state)
	}
	out.Field("state", "%s", state)
	out.Field("enabled", "%t", st.Enabled)
	out.Field("generation", "%d", st.Generation)
	if st.Indicator.Visible {
		out.Field("indicator", "%s", st.Indicator.Tooltip)
	}
}

// ///////////////////////////////////////////////
// logs
// ///////////////////////////////////////////////

func newLogsCmd(root *rootOptions, out *output) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tail, err := logger.ReadTail(root.paths().Log(), lines)
			if errors.Is(err, os.ErrNotExist) {
				out.Muted("no log yet at %s", root.paths().Log())
				return nil
			}
			if err != nil {
				return fmt.Errorf("read log: %w", err)
			}
			if tail != "" {
				out.Print("%s", tail)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	return cmd
}

// ///////////////////////////////////////////////
// version
// ///////////////////////////////////////////////

func newVersionCmd(out *output) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ver := resolveVersion()
			out.Print("codecord %s", ver)
			if !check {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			res, err := update.Check(ctx, ver)
			switch {
			case err != nil:
				return fmt.Errorf("version check: %w", err)
			case res.Latest == "":
				out.Muted("no release repository configured")
			case res.Available:
				out.Warning("codecord %s is available", res.Latest)
				if u := remote.ReleasesURL(); u != "" {
					out.Info("%s", u)
				}
			default:
				out.Success("up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	return cmd
}

// ///////////////////////////////////////////////
// edit
// ///////////////////////////////////////////////

// editOptions holds the flags of the edit command.
type editOptions struct {
	workspace string
	language  string
	line      int
	closed    bool
}

func newEditCmd(root *rootOptions, out *output) *cobra.Command {
	opts := editOptions{}
	cmd := &cobra.Command{
		Use:   "edit [FILE]",
		Short: "Record the focused file in the editor state",
		Long: `Record the focused file in the editor state.

Editor integrations call this whenever the focused file or cursor changes.
Without FILE the workspace is marked idle; --closed marks the editor closed
and clears the presence.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			return recordEdit(root.paths().Editor(), file, opts, time.Now())
		},
	}
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", ".", "Workspace folder")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Editor language identifier")
	cmd.Flags().IntVar(&opts.line, "line", 0, "Cursor line")
	cmd.Flags().BoolVar(&opts.closed, "closed", false, "Mark the editor as closed")
	return cmd
}

// recordEdit updates the editor state file at path.
func recordEdit(path, file string, opts editOptions, now time.Time) error {
	ws, err := filepath.Abs(opts.workspace)
	if err != nil {
		return fmt.Errorf("resolving workspace: %w", err)
	}

	s, err := editor.ReadState(path)
	if err != nil || s == nil || s.Workspace != ws {
		s = &editor.State{Workspace: ws}
	}

	if file != "" {
		if file, err = filepath.Abs(file); err != nil {
			return fmt.Errorf("resolving file: %w", err)
		}
	}
	s.File = file
	s.Language = opts.language
	s.Line = opts.line
	s.Closed = opts.closed
	s.Touch(now)

	if err := editor.WriteState(path, s); err != nil {
		return fmt.Errorf("write editor state: %w", err)
	}
	return nil
}
