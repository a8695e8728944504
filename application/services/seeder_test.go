package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homedash-backend/domain/registry"
	"homedash-backend/infrastructure/persistence/memory"
)

func TestSeeder_BuildsAndPersistsDefaultLayout(t *testing.T) {
	repo := memory.NewLayoutRepository()
	seeder := NewDefaultSeeder(repo, zap.NewNop(), nil)
	ctx := context.Background()

	layout, persisted, err := seeder.Seed(ctx, "user123")

	require.NoError(t, err)
	assert.True(t, persisted)
	require.Equal(t, len(defaultWidgetTypes), layout.WidgetCount())

	// The starter arrangement in its intended top-to-bottom order
	types := make([]registry.WidgetType, 0, layout.WidgetCount())
	for _, w := range layout.Widgets() {
		types = append(types, w.Type())
	}
	assert.ElementsMatch(t, defaultWidgetTypes, types)

	stored, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	assert.Len(t, stored.Widgets, len(defaultWidgetTypes))
}

func TestSeeder_MintsFreshIDsPerUser(t *testing.T) {
	repo := memory.NewLayoutRepository()
	seeder := NewDefaultSeeder(repo, zap.NewNop(), nil)
	ctx := context.Background()

	layoutA, _, err := seeder.Seed(ctx, "alice")
	require.NoError(t, err)
	layoutB, _, err := seeder.Seed(ctx, "bob")
	require.NoError(t, err)

	idsA := make(map[string]bool)
	for _, w := range layoutA.Widgets() {
		idsA[w.ID().String()] = true
	}
	for _, w := range layoutB.Widgets() {
		assert.False(t, idsA[w.ID().String()], "widget ID reused across users")
	}
}

func TestSeeder_LostRaceAdoptsStoredLayout(t *testing.T) {
	repo := memory.NewLayoutRepository()
	seeder := NewDefaultSeeder(repo, zap.NewNop(), nil)
	ctx := context.Background()

	winner, _, err := seeder.Seed(ctx, "user123")
	require.NoError(t, err)

	// A concurrent first session seeds again; the stored document wins
	loser, persisted, err := seeder.Seed(ctx, "user123")
	require.NoError(t, err)
	assert.True(t, persisted)

	winnerIDs := make(map[string]bool)
	for _, w := range winner.Widgets() {
		winnerIDs[w.ID().String()] = true
	}
	for _, w := range loser.Widgets() {
		assert.True(t, winnerIDs[w.ID().String()], "adopted layout must carry the stored IDs")
	}
}

func TestSeeder_TransportFailureKeepsLocalLayout(t *testing.T) {
	seeder := NewDefaultSeeder(&outageRepo{}, zap.NewNop(), nil)

	layout, persisted, err := seeder.Seed(context.Background(), "user123")

	require.NoError(t, err)
	assert.False(t, persisted)
	assert.Equal(t, len(defaultWidgetTypes), layout.WidgetCount())
}
