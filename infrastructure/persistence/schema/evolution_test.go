package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/valueobjects"
)

func legacySnapshot(version int) aggregates.Snapshot {
	widgetID := valueobjects.NewWidgetID()
	return aggregates.Snapshot{
		UserID:        "user123",
		Mode:          aggregates.ModeGrid,
		SchemaVersion: version,
		Widgets: []aggregates.WidgetSnapshot{
			{ID: widgetID, Type: "clock"},
		},
		Placements: map[valueobjects.Breakpoint][]aggregates.PlacementEntry{
			"lg": {{WidgetID: widgetID, Rect: valueobjects.Rect{X: 0, Y: 0, W: 4, H: 2}}},
			"sm": {{WidgetID: widgetID, Rect: valueobjects.Rect{X: 0, Y: 2, W: 4, H: 2}}},
		},
	}
}

func TestMigrator_RenamesLegacyBreakpointKeys(t *testing.T) {
	snap := legacySnapshot(1)

	migrated, err := NewMigrator().Apply(&snap)

	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Equal(t, aggregates.CurrentSchemaVersion, snap.SchemaVersion)

	assert.NotContains(t, snap.Placements, valueobjects.Breakpoint("lg"))
	assert.NotContains(t, snap.Placements, valueobjects.Breakpoint("sm"))
	require.Len(t, snap.Placements[valueobjects.BreakpointWide], 1)
	require.Len(t, snap.Placements[valueobjects.BreakpointNarrow], 1)
	assert.Equal(t, 2, snap.Placements[valueobjects.BreakpointNarrow][0].Rect.Y)
}

func TestMigrator_VersionZeroTreatedAsOne(t *testing.T) {
	snap := legacySnapshot(0)

	migrated, err := NewMigrator().Apply(&snap)

	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Equal(t, aggregates.CurrentSchemaVersion, snap.SchemaVersion)
}

func TestMigrator_CurrentVersionUntouched(t *testing.T) {
	snap := legacySnapshot(aggregates.CurrentSchemaVersion)

	migrated, err := NewMigrator().Apply(&snap)

	require.NoError(t, err)
	assert.False(t, migrated)
	// Keys are left alone when no migration runs
	assert.Contains(t, snap.Placements, valueobjects.Breakpoint("lg"))
}

func TestMigrator_NewerVersionPreserved(t *testing.T) {
	// Written by a newer deploy; forward data must not be stripped
	snap := legacySnapshot(aggregates.CurrentSchemaVersion + 1)

	migrated, err := NewMigrator().Apply(&snap)

	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, aggregates.CurrentSchemaVersion+1, snap.SchemaVersion)
}

func TestMigrator_MissingMigrationFails(t *testing.T) {
	snap := legacySnapshot(1)

	_, err := (&Migrator{}).Apply(&snap)

	assert.Error(t, err)
}

func TestMigrator_EmptyPlacementsAreFine(t *testing.T) {
	snap := aggregates.Snapshot{
		UserID:        "user123",
		Mode:          aggregates.ModeFlow,
		SchemaVersion: 1,
	}

	migrated, err := NewMigrator().Apply(&snap)

	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Equal(t, aggregates.CurrentSchemaVersion, snap.SchemaVersion)
}
