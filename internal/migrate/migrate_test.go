// Package migrate tests verify sequential migration application, version
// skipping, error propagation, [NeedsMigration] detection, and the
// [Registry] upgrade and dev-transform paths.
package migrate

import (
	"fmt"
	"strings"
	"testing"
)

// ///////////////////////////////////////////////
// Run (package-level)
// ///////////////////////////////////////////////

func TestRunSkipsOldVersions(t *testing.T) {
	called := false
	migrations := []Migration{
		{Version: 1, Description: "already applied", Upgrade: func(d []byte) ([]byte, error) {
			called = true
			return d, nil
		}},
	}
	out, version, err := Run([]byte("data"), 1, migrations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("migration should have been skipped")
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
	if string(out) != "data" {
		t.Fatalf("expected data unchanged, got %q", out)
	}
}

func TestRunAppliesSequentially(t *testing.T) {
	migrations := []Migration{
		{Version: 2, Description: "v1->v2", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v2")...), nil
		}},
		{Version: 3, Description: "v2->v3", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v3")...), nil
		}},
	}
	out, version, err := Run([]byte("data"), 1, migrations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected version 3, got %d", version)
	}
	if string(out) != "data-v2-v3" {
		t.Fatalf("expected data-v2-v3, got %q", out)
	}
}

func TestRunStopsOnError(t *testing.T) {
	migrations := []Migration{
		{Version: 2, Description: "v1->v2", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v2")...), nil
		}},
		{Version: 3, Description: "v2->v3 fails", Upgrade: func(d []byte) ([]byte, error) {
			return nil, fmt.Errorf("boom")
		}},
	}
	_, version, err := Run([]byte("data"), 1, migrations)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "migration to v3 failed") {
		t.Fatalf("expected migration error message, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2 (stopped before v3), got %d", version)
	}
}

func TestRunNoMigrations(t *testing.T) {
	out, version, err := Run([]byte("original"), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
	if string(out) != "original" {
		t.Fatalf("expected original, got %q", out)
	}
}

// ///////////////////////////////////////////////
// NeedsMigration (package-level)
// ///////////////////////////////////////////////

func TestNeedsMigrationVersionMismatch(t *testing.T) {
	if !NeedsMigration(0, 1, false, nil) {
		t.Fatal("expected true for version 0 vs current 1")
	}
	if !NeedsMigration(2, 1, false, nil) {
		t.Fatal("expected true for version 2 vs current 1")
	}
}

func TestNeedsMigrationForce(t *testing.T) {
	migs := []Migration{{Version: 2, Description: "test"}}
	if !NeedsMigration(1, 1, true, migs) {
		t.Fatal("expected true with force and migrations present")
	}
	// force but no migrations
	if NeedsMigration(1, 1, true, nil) {
		t.Fatal("expected false with force but no migrations")
	}
}

func TestNeedsMigrationUpToDate(t *testing.T) {
	if NeedsMigration(1, 1, false, nil) {
		t.Fatal("expected false when up to date")
	}
	if NeedsMigration(1, 1, false, []Migration{}) {
		t.Fatal("expected false when up to date with empty migrations")
	}
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

func TestRunDevTransforms(t *testing.T) {
	r := &Registry{
		CurrentVersion: 1,
		Dev: []Migration{
			{Description: "add suffix", Upgrade: func(d []byte) ([]byte, error) {
				return append(d, []byte("-dev")...), nil
			}},
		},
	}
	out, err := r.RunDev([]byte("data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "data-dev" {
		t.Fatalf("expected data-dev, got %q", out)
	}
}

func TestRunDevNoTransforms(t *testing.T) {
	r := &Registry{CurrentVersion: 1}
	out, err := r.RunDev([]byte("data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "data" {
		t.Fatalf("expected data unchanged, got %q", out)
	}
}

func TestRegistryDefaults(t *testing.T) {
	if Config.CurrentVersion != 1 {
		t.Fatalf("expected Config.CurrentVersion=1, got %d", Config.CurrentVersion)
	}
	if Workspaces.CurrentVersion != 1 {
		t.Fatalf("expected Workspaces.CurrentVersion=1, got %d", Workspaces.CurrentVersion)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := &Registry{CurrentVersion: 2}
	r.Register(Migration{Version: 2, Description: "first"})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate version")
		}
	}()
	r.Register(Migration{Version: 2, Description: "second"})
}

// ///////////////////////////////////////////////
// Registry.Upgrade
// ///////////////////////////////////////////////

func TestUpgrade(t *testing.T) {
	appendStep := func(s string) func([]byte) ([]byte, error) {
		return func(d []byte) ([]byte, error) { return append(d, s...), nil }
	}

	tests := []struct {
		name        string
		reg         *Registry
		fileVersion int
		want        string
		wantChanged bool
	}{
		{
			name:        "up to date",
			reg:         &Registry{CurrentVersion: 2, Migrations: []Migration{{Version: 2, Upgrade: appendStep("-v2")}}},
			fileVersion: 2,
			want:        "data",
		},
		{
			name:        "old file migrated",
			reg:         &Registry{CurrentVersion: 2, Migrations: []Migration{{Version: 2, Upgrade: appendStep("-v2")}}},
			fileVersion: 1,
			want:        "data-v2",
			wantChanged: true,
		},
		{
			name: "dev transforms force rewrite",
			reg: &Registry{
				CurrentVersion: 1,
				Dev:            []Migration{{Description: "dev", Upgrade: appendStep("-dev")}},
			},
			fileVersion: 1,
			want:        "data-dev",
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed, err := tt.reg.Upgrade([]byte("data"), tt.fileVersion)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("out = %q, want %q", out, tt.want)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}

func TestUpgradePropagatesError(t *testing.T) {
	r := &Registry{
		CurrentVersion: 2,
		Migrations: []Migration{{Version: 2, Upgrade: func([]byte) ([]byte, error) {
			return nil, fmt.Errorf("bad data")
		}}},
	}
	if _, _, err := r.Upgrade([]byte("x"), 1); err == nil || !strings.Contains(err.Error(), "bad data") {
		t.Fatalf("expected wrapped migration error, got %v", err)
	}
}
