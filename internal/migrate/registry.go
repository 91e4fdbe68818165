package migrate

import "fmt"

// Registry holds the version and migrations for one on-disk schema
// (config.toml, workspaces.toml). Each file gets its own instance so version
// numbers stay independent.
type Registry struct {
	// CurrentVersion is the schema version this build writes.
	CurrentVersion int
	// Migrations is the list of versioned upgrades. Exported so tests can
	// swap it out.
	Migrations []Migration
	// Dev holds development-only transforms applied without advancing the
	// schema version. See [Registry.RunDev].
	Dev []Migration
}

// Register appends a migration. It panics on a duplicate version.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// RegisterDev appends a dev transform. It panics on a duplicate description.
func (r *Registry) RegisterDev(m Migration) {
	for _, existing := range r.Dev {
		if existing.Description == m.Description {
			panic(fmt.Sprintf("migrate: duplicate dev transform %q", m.Description))
		}
	}
	r.Dev = append(r.Dev, m)
}

// NeedsMigration reports whether a file at fileVersion would be rewritten.
func (r *Registry) NeedsMigration(fileVersion int, force bool) bool {
	return NeedsMigration(fileVersion, r.CurrentVersion, force, r.Migrations)
}

// Run applies registered migrations where fromVersion < m.Version.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	return Run(data, fromVersion, r.Migrations)
}

// RunDev applies dev transforms in registration order. The file version is
// left unchanged.
func (r *Registry) RunDev(data []byte) ([]byte, error) {
	for _, m := range r.Dev {
		var err error
		data, err = m.Upgrade(data)
		if err != nil {
			return nil, fmt.Errorf("dev transform %q: %w", m.Description, err)
		}
	}
	return data, nil
}

// HasDev reports whether any dev transforms are registered.
func (r *Registry) HasDev() bool {
	return len(r.Dev) > 0
}

// Upgrade brings raw file data at fileVersion up to CurrentVersion and then
// applies dev transforms. changed reports whether the caller should write the
// result back to disk.
func (r *Registry) Upgrade(data []byte, fileVersion int) (out []byte, changed bool, err error) {
	out = data
	if fileVersion != r.CurrentVersion {
		out, _, err = r.Run(out, fileVersion)
		if err != nil {
			return nil, false, err
		}
		changed = true
	}
	if r.HasDev() {
		out, err = r.RunDev(out)
		if err != nil {
			return nil, false, err
		}
		changed = true
	}
	return out, changed, nil
}

// Config is the migration registry for config.toml.
var Config = &Registry{CurrentVersion: 1}

// Workspaces is the migration registry for workspaces.toml.
var Workspaces = &Registry{CurrentVersion: 1}
