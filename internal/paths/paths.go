// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile        = "daemon.pid"
	ConfigFile     = "config.toml"
	WorkspacesFile = "workspaces.toml"
	EditorFile     = "state.json"
	LogFile        = "daemon.log"
	ControlSocket  = "control.sock"
)

const (
	BinaryName = "codecord"
	DataDirRel = ".codecord" // relative to $HOME
)

// ReleaseManifest is the release manifest path relative to the repo root.
const ReleaseManifest = ".release-manifest.json"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Workspaces returns the full path to the per-workspace intent file.
func (d DataDir) Workspaces() string { return filepath.Join(d.Root, WorkspacesFile) }

// Editor returns the full path to the editor state file.
func (d DataDir) Editor() string { return filepath.Join(d.Root, EditorFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Control returns the full path to the control socket.
func (d DataDir) Control() string { return filepath.Join(d.Root, ControlSocket) }

// PipeName returns the Windows named pipe for the control channel. The pipe
// namespace is global, so the name is derived from the data directory to keep
// daemons with different data directories apart.
func (d DataDir) PipeName() string {
	sum := sha256.Sum256([]byte(filepath.Clean(d.Root)))
	return `\\.\pipe\` + BinaryName + "-" + hex.EncodeToString(sum[:6])
}
