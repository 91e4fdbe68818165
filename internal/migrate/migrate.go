// Package migrate applies sequential schema migrations to on-disk data,
// upgrading from one version to the next.
package migrate

import (
	"fmt"
	"log/slog"
	"slices"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades on-disk data from the previous schema version to
// Version.
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short label for log output.
	Description string
	// Upgrade transforms data from the prior version to [Migration.Version].
	Upgrade func(data []byte) ([]byte, error)
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Run applies migrations in version order, skipping those at or below
// fromVersion. It returns the transformed data and the final version reached;
// on error the version is the last one successfully applied.
func Run(data []byte, fromVersion int, migrations []Migration) ([]byte, int, error) {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })

	version := fromVersion
	for _, m := range sorted {
		if version >= m.Version {
			continue
		}
		slog.Info("applying migration", "version", m.Version, "description", m.Description)
		var err error
		data, err = m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		version = m.Version
	}
	return data, version, nil
}

// NeedsMigration reports whether a file at fileVersion would be rewritten
// given currentVersion and the registered migrations.
func NeedsMigration(fileVersion, currentVersion int, force bool, migrations []Migration) bool {
	if fileVersion != currentVersion {
		return true
	}
	if force && len(migrations) > 0 {
		return true
	}
	return slices.ContainsFunc(migrations, func(m Migration) bool { return fileVersion < m.Version })
}
