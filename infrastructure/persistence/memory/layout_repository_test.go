package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homedash-backend/application/ports"
	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/registry"
)

func sampleSnapshot(userID string) aggregates.Snapshot {
	widgetID := valueobjects.NewWidgetID()
	return aggregates.Snapshot{
		UserID:        userID,
		Mode:          aggregates.ModeGrid,
		SchemaVersion: aggregates.CurrentSchemaVersion,
		Widgets: []aggregates.WidgetSnapshot{
			{ID: widgetID, Type: registry.TypeClock},
		},
		Placements: map[valueobjects.Breakpoint][]aggregates.PlacementEntry{
			valueobjects.BreakpointWide: {
				{WidgetID: widgetID, Rect: valueobjects.Rect{X: 0, Y: 0, W: 4, H: 2}},
			},
		},
	}
}

func TestLayoutRepository_LoadMissingUser(t *testing.T) {
	repo := NewLayoutRepository()

	_, err := repo.Load(context.Background(), "nobody")

	assert.ErrorIs(t, err, ports.ErrLayoutNotFound)
}

func TestLayoutRepository_SaveThenLoad(t *testing.T) {
	repo := NewLayoutRepository()
	ctx := context.Background()
	snap := sampleSnapshot("user123")

	require.NoError(t, repo.Save(ctx, snap))

	loaded, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, snap.UserID, loaded.UserID)
	assert.Equal(t, snap.SchemaVersion, loaded.SchemaVersion)
	require.Len(t, loaded.Widgets, 1)
	assert.True(t, loaded.Widgets[0].ID.Equals(snap.Widgets[0].ID))
}

func TestLayoutRepository_SaveReplacesPriorDocument(t *testing.T) {
	repo := NewLayoutRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleSnapshot("user123")))

	replacement := sampleSnapshot("user123")
	replacement.Revision = 5
	require.NoError(t, repo.Save(ctx, replacement))

	loaded, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Revision)
	assert.Equal(t, 1, repo.Len())
}

func TestLayoutRepository_CreateIsFirstWriterWins(t *testing.T) {
	repo := NewLayoutRepository()
	ctx := context.Background()

	first := sampleSnapshot("user123")
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, sampleSnapshot("user123"))
	assert.ErrorIs(t, err, ports.ErrLayoutExists)

	loaded, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	assert.True(t, loaded.Widgets[0].ID.Equals(first.Widgets[0].ID))
}

func TestLayoutRepository_LoadReturnsCopies(t *testing.T) {
	repo := NewLayoutRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleSnapshot("user123")))

	loaded, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	loaded.Placements[valueobjects.BreakpointWide][0].Rect.X = 9

	again, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Placements[valueobjects.BreakpointWide][0].Rect.X)
}
