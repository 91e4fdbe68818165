// Package main implements codecord: the daemon that keeps Discord Rich
// Presence in sync with an editor session, and the CLI that controls it.
package main

import (
	"errors"
	"os"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"tools.zach/dev/codecord/internal/control"
	"tools.zach/dev/codecord/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set, resolveVersion reads the VCS info the Go toolchain
// embeds.
var version = "dev"

// resolveVersion returns [version] when set via ldflags, otherwise a
// "dev+<hash>" tag built from the embedded VCS revision.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Exit Codes
// ///////////////////////////////////////////////

const (
	exitOK         = 0
	exitGeneral    = 1
	exitUsage      = 2
	exitNotRunning = 3
)

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	out := newOutput(os.Stdout, os.Stderr)
	root := newRootCmd(out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return handleError(out, err)
	}
	return exitOK
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	dataDir string
	noColor bool
}

func (o *rootOptions) paths() DataPaths { return DataPaths{Root: o.dataDir} }

func newRootCmd(out *output) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   paths.BinaryName,
		Short: "Discord Rich Presence for your editor",
		Long: `codecord keeps Discord Rich Presence in sync with your editor session.

The daemon owns the Discord connection for one workspace; the other
commands talk to it over a local control socket.

  codecord daemon --workspace .   Run the daemon for the current folder
  codecord status                 Show the connection state
  codecord disable-workspace      Stop sharing activity for this folder`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	root.SetOut(out.out)
	root.SetErr(out.err)

	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", defaultDataDir(), "Data directory for config, state, and logs")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newDaemonCmd(opts, out),
		newLogsCmd(opts, out),
		newVersionCmd(out),
		newEditCmd(opts, out),
	)
	for _, spec := range controlCommands {
		root.AddCommand(newControlCmd(opts, out, spec))
	}
	return root
}

// handleError prints err and maps it to an exit code.
func handleError(out *output, err error) int {
	msg := err.Error()
	switch {
	case errors.Is(err, control.ErrDaemonNotRunning):
		out.Failure("%s", msg)
		out.Info("Start it with '%s daemon --workspace <dir>'", paths.BinaryName)
		return exitNotRunning
	case strings.HasPrefix(msg, "unknown command"),
		strings.HasPrefix(msg, "unknown flag"),
		strings.HasPrefix(msg, "unknown shorthand flag"),
		strings.Contains(msg, "required flag"),
		strings.Contains(msg, "accepts "):
		out.Failure("%s", msg)
		out.Info("Run '%s --help' for usage", paths.BinaryName)
		return exitUsage
	default:
		out.Failure("%s", msg)
		return exitGeneral
	}
}
