// Package schema upgrades persisted layout documents across versions.
// Migrations run in memory at load time; the upgraded document is not
// written back here, the caller marks the layout dirty and the autosaver
// persists it through the normal save path.
package schema

import (
	"fmt"

	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/valueobjects"
)

// MigrationFunc upgrades a document by exactly one version
type MigrationFunc func(snap *aggregates.Snapshot) error

// Migration is a registered single-step document upgrade
type Migration struct {
	FromVersion int
	ToVersion   int
	Description string
	Up          MigrationFunc
}

// Migrator applies the registered migration chain to bring a document up
// to the current schema version
type Migrator struct {
	migrations []Migration
}

// NewMigrator returns a migrator loaded with every known migration
func NewMigrator() *Migrator {
	m := &Migrator{}
	m.register(Migration{
		FromVersion: 1,
		ToVersion:   2,
		Description: "rename breakpoint keys lg/sm to wide/narrow",
		Up:          migrateBreakpointNames,
	})
	return m
}

func (m *Migrator) register(migration Migration) {
	m.migrations = append(m.migrations, migration)
}

// Apply upgrades the document in place until it reaches the current
// schema version. Returns whether anything changed. Documents claiming a
// version newer than this build understands are left untouched: a newer
// deploy wrote them, and forward data is preserved rather than stripped.
func (m *Migrator) Apply(snap *aggregates.Snapshot) (bool, error) {
	if snap.SchemaVersion == 0 {
		// Pre-versioning documents are structurally version 1
		snap.SchemaVersion = 1
	}

	migrated := false
	for snap.SchemaVersion < aggregates.CurrentSchemaVersion {
		migration := m.find(snap.SchemaVersion)
		if migration == nil {
			return migrated, fmt.Errorf("no migration from layout schema version %d", snap.SchemaVersion)
		}

		if err := migration.Up(snap); err != nil {
			return migrated, fmt.Errorf("migration %d->%d failed: %w",
				migration.FromVersion, migration.ToVersion, err)
		}

		snap.SchemaVersion = migration.ToVersion
		migrated = true
	}

	return migrated, nil
}

func (m *Migrator) find(from int) *Migration {
	for i := range m.migrations {
		if m.migrations[i].FromVersion == from {
			return &m.migrations[i]
		}
	}
	return nil
}

// legacyBreakpointNames maps the grid-library-era breakpoint keys to the
// product's own names
var legacyBreakpointNames = map[valueobjects.Breakpoint]valueobjects.Breakpoint{
	"lg": valueobjects.BreakpointWide,
	"sm": valueobjects.BreakpointNarrow,
}

func migrateBreakpointNames(snap *aggregates.Snapshot) error {
	if len(snap.Placements) == 0 {
		return nil
	}

	renamed := make(map[valueobjects.Breakpoint][]aggregates.PlacementEntry, len(snap.Placements))
	for bp, entries := range snap.Placements {
		if modern, ok := legacyBreakpointNames[bp]; ok {
			bp = modern
		}
		renamed[bp] = append(renamed[bp], entries...)
	}
	snap.Placements = renamed
	return nil
}
