package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/codecord/internal/atomicfile"
	"tools.zach/dev/codecord/internal/migrate"
)

// ///////////////////////////////////////////////
// Intent
// ///////////////////////////////////////////////

// Intent is the user's persisted preference for presence reporting. Global
// comes from config.toml; Workspace is nil unless the workspace has its own
// entry in workspaces.toml.
type Intent struct {
	Global    bool
	Workspace *bool
}

// Enabled resolves the effective intent. A workspace entry wins over the
// global flag.
func (i Intent) Enabled() bool {
	if i.Workspace != nil {
		return *i.Workspace
	}
	return i.Global
}

// ///////////////////////////////////////////////
// Workspaces File
// ///////////////////////////////////////////////

// WorkspaceEntry is one workspace's persisted intent.
type WorkspaceEntry struct {
	Enabled bool `toml:"enabled"`
}

// workspacesFile is the on-disk schema of workspaces.toml.
type workspacesFile struct {
	Version    int                       `toml:"version"`
	Workspaces map[string]WorkspaceEntry `toml:"workspaces"`
}

// ///////////////////////////////////////////////
// IntentStore
// ///////////////////////////////////////////////

// IntentStore reads and writes the intent of a single workspace. Writes go to
// workspaces.toml so the choice survives editor restarts; config.toml is never
// modified.
type IntentStore struct {
	path      string
	workspace string
	global    bool

	// mu serializes read-modify-write cycles on the file.
	mu sync.Mutex
}

// NewIntentStore returns a store for workspace backed by the file at path.
// global is the config.toml presence.enabled value.
func NewIntentStore(path, workspace string, global bool) *IntentStore {
	return &IntentStore{path: path, workspace: workspaceKey(workspace), global: global}
}

// Workspace returns the normalized workspace key.
func (s *IntentStore) Workspace() string { return s.workspace }

// Intent returns the current intent. A missing file means no workspace entry.
func (s *IntentStore) Intent() (Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := Intent{Global: s.global}
	wf, err := s.read()
	if err != nil {
		return in, err
	}
	if e, ok := wf.Workspaces[s.workspace]; ok {
		enabled := e.Enabled
		in.Workspace = &enabled
	}
	return in, nil
}

// SetEnabled persists enabled for the store's workspace.
func (s *IntentStore) SetEnabled(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, err := s.read()
	if err != nil {
		return err
	}
	if wf.Workspaces == nil {
		wf.Workspaces = make(map[string]WorkspaceEntry)
	}
	wf.Workspaces[s.workspace] = WorkspaceEntry{Enabled: enabled}
	wf.Version = migrate.Workspaces.CurrentVersion
	return s.write(wf)
}

// Clear removes the workspace entry so the global intent applies again.
func (s *IntentStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := wf.Workspaces[s.workspace]; !ok {
		return nil
	}
	delete(wf.Workspaces, s.workspace)
	return s.write(wf)
}

// read loads the workspaces file. The caller must hold s.mu.
func (s *IntentStore) read() (*workspacesFile, error) {
	wf := &workspacesFile{Version: migrate.Workspaces.CurrentVersion}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return wf, nil
		}
		return nil, fmt.Errorf("read workspaces file: %w", err)
	}
	data, _, err = migrate.Workspaces.Upgrade(data, PeekVersion(data))
	if err != nil {
		return nil, fmt.Errorf("migrate workspaces file: %w", err)
	}
	if err := toml.Unmarshal(data, wf); err != nil {
		return nil, fmt.Errorf("parse workspaces file: %w", err)
	}
	return wf, nil
}

// write saves the workspaces file. The caller must hold s.mu.
func (s *IntentStore) write(wf *workspacesFile) error {
	return atomicfile.WriteWith(s.path, 0o644, func(w io.Writer) error {
		if err := toml.NewEncoder(w).Encode(wf); err != nil {
			return fmt.Errorf("encoding workspaces file: %w", err)
		}
		return nil
	})
}

// workspaceKey normalizes a workspace directory into a stable map key.
func workspaceKey(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.ToSlash(filepath.Clean(dir))
}
