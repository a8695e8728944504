package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homedash-backend/application/ports"
	"homedash-backend/domain/config"
	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/validators"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/registry"
	"homedash-backend/infrastructure/persistence/memory"
	"homedash-backend/infrastructure/persistence/schema"
	pkgerrors "homedash-backend/pkg/errors"
)

func newTestService(repo ports.LayoutRepository) *LayoutService {
	logger := zap.NewNop()
	cfg := config.DefaultDomainConfig()
	cfg.EnableEventPublishing = false
	cfg.EnableRenderCache = false

	autosaver := NewAutosaver(repo, 50*time.Millisecond, logger, nil)
	seeder := NewDefaultSeeder(repo, logger, nil)
	svc := NewLayoutService(
		repo, seeder, autosaver, nil, nil,
		schema.NewMigrator(), validators.NewLayoutValidator(),
		cfg, logger, nil,
	)
	autosaver.SetSource(svc)
	return svc
}

func TestLayoutService_FirstAccessSeedsDefaultLayout(t *testing.T) {
	repo := memory.NewLayoutRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	model, err := svc.Render(ctx, "user123", 1280)

	require.NoError(t, err)
	assert.Equal(t, valueobjects.BreakpointWide, model.Breakpoint)
	assert.Len(t, model.Widgets, 6)

	// The seed is persisted immediately, not deferred to the autosaver
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, SaveStateClean, svc.SaveState("user123"))
}

func TestLayoutService_SeededWidgetIDsSurviveSessions(t *testing.T) {
	// Two services sharing one store model a page reload: the second
	// session must see the IDs the first one persisted.
	repo := memory.NewLayoutRepository()
	ctx := context.Background()

	first := newTestService(repo)
	snapA, err := first.CurrentSnapshot(ctx, "user123")
	require.NoError(t, err)

	second := newTestService(repo)
	snapB, err := second.CurrentSnapshot(ctx, "user123")
	require.NoError(t, err)

	require.Len(t, snapB.Widgets, len(snapA.Widgets))
	for i := range snapA.Widgets {
		assert.True(t, snapA.Widgets[i].ID.Equals(snapB.Widgets[i].ID))
		assert.Equal(t, snapA.Widgets[i].Type, snapB.Widgets[i].Type)
	}
}

func TestLayoutService_LoadFailureIsNotPaperedOverWithSeed(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(repo)

	_, err := svc.Render(context.Background(), "user123", 1280)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePersistenceLoadFailure))
}

func TestLayoutService_MutationMarksDirtyAndFlushPersists(t *testing.T) {
	repo := memory.NewLayoutRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	widget, err := svc.AddWidget(ctx, "user123", registry.TypeNotes, nil)
	require.NoError(t, err)
	assert.Equal(t, SaveStateDirty, svc.SaveState("user123"))

	require.NoError(t, svc.Flush(ctx, "user123"))
	assert.Equal(t, SaveStateClean, svc.SaveState("user123"))

	// The stored document carries the new widget
	snap, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	found := false
	for _, w := range snap.Widgets {
		if w.ID.Equals(widget.ID()) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLayoutService_RemoveUnknownWidgetStaysClean(t *testing.T) {
	repo := memory.NewLayoutRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Render(ctx, "user123", 1280)
	require.NoError(t, err)
	require.Equal(t, SaveStateClean, svc.SaveState("user123"))

	err = svc.RemoveWidget(ctx, "user123", valueobjects.NewWidgetID())

	assert.NoError(t, err)
	assert.Equal(t, SaveStateClean, svc.SaveState("user123"))
}

func TestLayoutService_AddUnknownTypeRejected(t *testing.T) {
	repo := memory.NewLayoutRepository()
	svc := newTestService(repo)

	_, err := svc.AddWidget(context.Background(), "user123", registry.WidgetType("weather"), nil)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnknownWidgetType))
}

func TestLayoutService_LegacyDocumentMigratesAndResaves(t *testing.T) {
	// Arrange: a v1 document using the grid library's breakpoint names
	repo := memory.NewLayoutRepository()
	ctx := context.Background()

	widgetID := valueobjects.NewWidgetID()
	legacy := aggregates.Snapshot{
		UserID:        "user123",
		Mode:          aggregates.ModeGrid,
		SchemaVersion: 1,
		Widgets: []aggregates.WidgetSnapshot{
			{ID: widgetID, Type: registry.TypeClock, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		},
		Placements: map[valueobjects.Breakpoint][]aggregates.PlacementEntry{
			"lg": {{WidgetID: widgetID, Rect: valueobjects.Rect{X: 0, Y: 0, W: 4, H: 2}}},
			"sm": {{WidgetID: widgetID, Rect: valueobjects.Rect{X: 0, Y: 0, W: 4, H: 2}}},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, repo.Save(ctx, legacy))

	svc := newTestService(repo)

	// Act
	snap, err := svc.CurrentSnapshot(ctx, "user123")

	// Assert: renamed keys, current version, and a pending re-save
	require.NoError(t, err)
	assert.Equal(t, aggregates.CurrentSchemaVersion, snap.SchemaVersion)
	assert.Len(t, snap.Placements[valueobjects.BreakpointWide], 1)
	assert.Len(t, snap.Placements[valueobjects.BreakpointNarrow], 1)
	assert.Equal(t, SaveStateDirty, svc.SaveState("user123"))

	require.NoError(t, svc.Flush(ctx, "user123"))
	stored, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, aggregates.CurrentSchemaVersion, stored.SchemaVersion)
}

func TestLayoutService_SnapshotForUnknownUser(t *testing.T) {
	svc := newTestService(memory.NewLayoutRepository())

	_, ok := svc.SnapshotFor("nobody")

	assert.False(t, ok)
}

func TestLayoutService_EmptyUserIDRejected(t *testing.T) {
	svc := newTestService(memory.NewLayoutRepository())

	_, err := svc.Render(context.Background(), "", 1280)

	assert.Error(t, err)
}

func TestLayoutService_SeedSurvivesStoreOutage(t *testing.T) {
	// Load says not-found, create fails on transport: the user still gets
	// a dashboard and the document stays dirty for retry.
	repo := &outageRepo{}
	svc := newTestService(repo)

	model, err := svc.Render(context.Background(), "user123", 1280)

	require.NoError(t, err)
	assert.Len(t, model.Widgets, 6)
	assert.Equal(t, SaveStateDirty, svc.SaveState("user123"))
}

func TestLayoutService_MoveOrResizeRejectsOversizedRect(t *testing.T) {
	repo := memory.NewLayoutRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	widget, err := svc.AddWidget(ctx, "user123", registry.TypeClock, nil)
	require.NoError(t, err)

	err = svc.MoveOrResize(ctx, "user123", widget.ID(), valueobjects.BreakpointWide,
		valueobjects.Rect{X: 0, Y: 0, W: 13, H: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidPlacement))

	err = svc.MoveOrResize(ctx, "user123", widget.ID(), valueobjects.BreakpointWide,
		valueobjects.Rect{X: 0, Y: 0, W: 4, H: 25})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidPlacement))
}

func TestLayoutService_StrictLoadRejectsUnregisteredTypes(t *testing.T) {
	// Arrange: a stored document referencing a type the registry dropped
	repo := memory.NewLayoutRepository()
	ctx := context.Background()

	stored := aggregates.Snapshot{
		UserID:        "user123",
		Mode:          aggregates.ModeGrid,
		SchemaVersion: aggregates.CurrentSchemaVersion,
		Widgets: []aggregates.WidgetSnapshot{
			{ID: valueobjects.NewWidgetID(), Type: registry.WidgetType("retired_widget"), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, repo.Save(ctx, stored))

	svc := newTestService(repo)
	svc.config.AllowUnknownWidgetTypesOnLoad = false

	_, err := svc.CurrentSnapshot(ctx, "user123")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnknownWidgetType))
}

func TestLayoutService_MutationAfterEvictionIsNotLost(t *testing.T) {
	repo := memory.NewLayoutRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Render(ctx, "user123", 1280)
	require.NoError(t, err)
	require.NoError(t, svc.Flush(ctx, "user123"))

	// Age the session past the TTL and run one janitor pass
	svc.mu.Lock()
	sess := svc.sessions["user123"]
	svc.mu.Unlock()
	sess.mu.Lock()
	sess.lastAccess = time.Now().Add(-svc.config.SessionIdleTTL - time.Minute)
	sess.mu.Unlock()
	svc.evictIdle(ctx)

	svc.mu.RLock()
	_, resident := svc.sessions["user123"]
	svc.mu.RUnlock()
	require.False(t, resident)
	assert.True(t, sess.evicted)

	// A caller that grabbed the session before eviction relocks, sees the
	// flag, and gets a fresh session instead of the orphan
	fresh, err := svc.lockSession(ctx, "user123")
	require.NoError(t, err)
	assert.NotSame(t, sess, fresh)
	fresh.mu.Unlock()

	// The mutation lands on the reloaded session and persists
	widget, err := svc.AddWidget(ctx, "user123", registry.TypeNotes, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Flush(ctx, "user123"))

	stored, err := repo.Load(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, stored.Widgets, 7)
	found := false
	for _, w := range stored.Widgets {
		if w.ID.Equals(widget.ID()) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLayoutService_EvictIdleKeepsUnsavableSessions(t *testing.T) {
	// Writes fail, so the session stays dirty and must stay resident
	repo := &outageRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Render(ctx, "user123", 1280)
	require.NoError(t, err)
	require.Equal(t, SaveStateDirty, svc.SaveState("user123"))

	svc.mu.Lock()
	sess := svc.sessions["user123"]
	svc.mu.Unlock()
	sess.mu.Lock()
	sess.lastAccess = time.Now().Add(-svc.config.SessionIdleTTL - time.Minute)
	sess.mu.Unlock()

	svc.evictIdle(ctx)

	svc.mu.RLock()
	_, resident := svc.sessions["user123"]
	svc.mu.RUnlock()
	assert.True(t, resident)
	assert.False(t, sess.evicted)
	assert.Equal(t, SaveStateDirty, svc.SaveState("user123"))
}

// outageRepo has no stored documents and refuses writes
type outageRepo struct{}

func (r *outageRepo) Load(ctx context.Context, userID string) (aggregates.Snapshot, error) {
	return aggregates.Snapshot{}, ports.ErrLayoutNotFound
}

func (r *outageRepo) Save(ctx context.Context, snapshot aggregates.Snapshot) error {
	return errors.New("dynamodb: connection refused")
}

func (r *outageRepo) Create(ctx context.Context, snapshot aggregates.Snapshot) error {
	return errors.New("dynamodb: connection refused")
}
