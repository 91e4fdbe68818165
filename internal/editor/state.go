// Package editor turns the editor's state file into Discord activities.
//
// The editor (or `codecord edit`) writes state.json into the data directory
// whenever the focused file changes. [Watcher] notices the write, [ReadState]
// parses it and [Builder] renders the configured templates into a
// [discord.Activity] that is handed to the presence controller.
package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"tools.zach/dev/codecord/internal/atomicfile"
)

// ///////////////////////////////////////////////
// State Types
// ///////////////////////////////////////////////

// CurrentVersion is the latest state file schema version.
const CurrentVersion = 1

// State is the editor state file schema.
type State struct {
	// Version is the schema version. See [CurrentVersion].
	Version int `json:"$version"`
	// Workspace is the absolute path of the open workspace folder.
	Workspace string `json:"workspace"`
	// File is the absolute path of the focused file, or empty when none is open.
	File string `json:"file,omitempty"`
	// Language is the editor's language identifier for File (e.g. "go").
	Language string `json:"language,omitempty"`
	// Line is the 1-based cursor line in File.
	Line int `json:"line,omitempty"`
	// SessionStart is the Unix timestamp when the workspace was opened.
	SessionStart int64 `json:"sessionStart,omitempty"`
	// LastActivity is the Unix timestamp of the last edit or focus change.
	LastActivity int64 `json:"lastActivity,omitempty"`
	// Closed is set by the editor when its window goes away.
	Closed bool `json:"closed,omitempty"`
}

// Touch records activity at now.
func (s *State) Touch(now time.Time) {
	if s.SessionStart == 0 {
		s.SessionStart = now.Unix()
	}
	s.LastActivity = now.Unix()
}

// ///////////////////////////////////////////////
// State I/O
// ///////////////////////////////////////////////

// ReadState reads and parses the state file at path. A corrupted file is
// copied to path.corrupted and reported as an error. A file from a newer
// schema is parsed on a best-effort basis.
func ReadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading editor state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		corrupted := path + ".corrupted"
		if wErr := atomicfile.Write(corrupted, data, 0o600); wErr != nil {
			slog.Warn("failed to write backup", "path", corrupted, "error", wErr)
		}
		return nil, fmt.Errorf("corrupted editor state (backed up to %s): %w", corrupted, err)
	}

	if s.Version == 0 {
		s.Version = 1
	}
	if s.Version > CurrentVersion {
		slog.Debug("editor state from a newer schema", "version", s.Version, "current", CurrentVersion)
	}
	return &s, nil
}

// WriteState atomically writes s to path.
func WriteState(path string, s *State) error {
	s.Version = CurrentVersion
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling editor state: %w", err)
	}
	return atomicfile.Write(path, data, 0o600)
}
