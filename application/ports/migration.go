package ports

import "homedash-backend/domain/core/aggregates"

// SnapshotMigrator upgrades a persisted layout document to the current
// schema version in place. Apply reports whether anything changed so the
// caller can mark the layout dirty and let the autosaver write the
// upgraded document back.
type SnapshotMigrator interface {
	Apply(snap *aggregates.Snapshot) (bool, error)
}
