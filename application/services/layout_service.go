package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"homedash-backend/application/ports"
	"homedash-backend/domain/config"
	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/core/entities"
	"homedash-backend/domain/core/validators"
	"homedash-backend/domain/core/valueobjects"
	"homedash-backend/domain/registry"
	pkgerrors "homedash-backend/pkg/errors"
	"homedash-backend/pkg/observability"
)

// session is one user's resident layout plus its lock. Every aggregate
// access, including the autosaver's snapshot-at-dispatch, goes through
// mu, so mutations and save dispatches serialize per user. The janitor
// sets evicted under mu before dropping the session from the map; a
// caller that looked the session up earlier and then wins the lock must
// not mutate the orphaned aggregate.
type session struct {
	mu         sync.Mutex
	layout     *aggregates.Layout
	lastAccess time.Time
	evicted    bool
}

// LayoutService is the application-facing surface of the layout engine.
// It owns the resident sessions, loads or seeds layouts on first access,
// routes mutations into the aggregate, and feeds the autosaver.
type LayoutService struct {
	repo      ports.LayoutRepository
	seeder    *DefaultSeeder
	autosaver *Autosaver
	publisher ports.EventPublisher
	cache     ports.Cache
	migrator  ports.SnapshotMigrator
	validator *validators.LayoutValidator
	config    *config.DomainConfig
	logger    *zap.Logger
	metrics   *observability.Metrics

	mu       sync.RWMutex
	sessions map[string]*session

	janitorOnce sync.Once
	janitorStop chan struct{}
}

// NewLayoutService creates a layout service. Callers must wire the
// autosaver back to the service with autosaver.SetSource afterwards.
func NewLayoutService(
	repo ports.LayoutRepository,
	seeder *DefaultSeeder,
	autosaver *Autosaver,
	publisher ports.EventPublisher,
	cache ports.Cache,
	migrator ports.SnapshotMigrator,
	validator *validators.LayoutValidator,
	cfg *config.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *LayoutService {
	return &LayoutService{
		repo:        repo,
		seeder:      seeder,
		autosaver:   autosaver,
		publisher:   publisher,
		cache:       cache,
		migrator:    migrator,
		validator:   validator,
		config:      cfg,
		logger:      logger,
		metrics:     metrics,
		sessions:    make(map[string]*session),
		janitorStop: make(chan struct{}),
	}
}

// Render produces the reflowed, render-ready layout for the viewport
// width. First access loads the saved document or seeds the default
// layout.
func (s *LayoutService) Render(ctx context.Context, userID string, width int) (aggregates.RenderModel, error) {
	spec := valueobjects.ResolveBreakpoint(width)

	sess, err := s.getOrLoadSession(ctx, userID)
	if err != nil {
		return aggregates.RenderModel{}, err
	}

	cacheKey := fmt.Sprintf("layout:%s:%s", userID, spec.Name)
	if s.cacheEnabled() {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			if model, ok := cached.(aggregates.RenderModel); ok {
				return model, nil
			}
		}
	}

	sess.mu.Lock()
	sess.lastAccess = time.Now()
	model := sess.layout.Render(spec)
	sess.mu.Unlock()

	if len(model.Dangling) > 0 {
		ids := make([]string, len(model.Dangling))
		for i, id := range model.Dangling {
			ids[i] = id.String()
		}
		s.logger.Warn("Skipped dangling placement references during render",
			zap.String("userId", userID),
			zap.Strings("widgetIds", ids),
		)
		if s.metrics != nil {
			s.metrics.RecordDanglingReferences(ctx, len(model.Dangling))
		}
	}

	if s.cacheEnabled() {
		_ = s.cache.Set(ctx, cacheKey, model, 30)
	}

	return model, nil
}

// CurrentSnapshot returns the full layout document as currently held in
// memory
func (s *LayoutService) CurrentSnapshot(ctx context.Context, userID string) (aggregates.Snapshot, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return aggregates.Snapshot{}, err
	}
	defer sess.mu.Unlock()

	sess.lastAccess = time.Now()
	return sess.layout.Snapshot(), nil
}

// AddWidget creates a widget of the given type at the default position
// for every breakpoint
func (s *LayoutService) AddWidget(ctx context.Context, userID string, widgetType registry.WidgetType, hint *aggregates.SizeHint) (*entities.Widget, error) {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	widget, err := sess.layout.AddWidget(widgetType, hint)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	s.afterMutationLocked(ctx, sess, userID)
	sess.mu.Unlock()

	return widget, nil
}

// RemoveWidget deletes a widget and all of its placements. Unknown IDs
// are a silent success so retried deletes stay harmless.
func (s *LayoutService) RemoveWidget(ctx context.Context, userID string, id valueobjects.WidgetID) error {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return err
	}

	before := sess.layout.WidgetCount()
	sess.layout.RemoveWidget(id)
	if sess.layout.WidgetCount() != before {
		s.afterMutationLocked(ctx, sess, userID)
	} else {
		sess.lastAccess = time.Now()
	}
	sess.mu.Unlock()

	return nil
}

// MoveOrResize applies a drag gesture's resulting rectangle at one
// breakpoint
func (s *LayoutService) MoveOrResize(ctx context.Context, userID string, id valueobjects.WidgetID, bp valueobjects.Breakpoint, rect valueobjects.Rect) error {
	if rect.W > s.config.MaxPlacementWidth || rect.H > s.config.MaxPlacementHeight {
		return pkgerrors.NewValidationError(fmt.Sprintf(
			"placement exceeds the maximum footprint of %dx%d cells",
			s.config.MaxPlacementWidth, s.config.MaxPlacementHeight,
		)).WithCode(pkgerrors.CodeInvalidPlacement)
	}

	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return err
	}

	if err := sess.layout.MoveOrResize(id, bp, rect); err != nil {
		sess.mu.Unlock()
		return err
	}
	s.afterMutationLocked(ctx, sess, userID)
	sess.mu.Unlock()

	return nil
}

// Reorder moves a flow-mode widget to a new list position
func (s *LayoutService) Reorder(ctx context.Context, userID string, id valueobjects.WidgetID, targetIndex int) error {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return err
	}

	if err := sess.layout.Reorder(id, targetIndex); err != nil {
		sess.mu.Unlock()
		return err
	}
	s.afterMutationLocked(ctx, sess, userID)
	sess.mu.Unlock()

	return nil
}

// UpdateSettings shallow-merges a partial settings bag into a widget
func (s *LayoutService) UpdateSettings(ctx context.Context, userID string, id valueobjects.WidgetID, partial map[string]interface{}) error {
	sess, err := s.lockSession(ctx, userID)
	if err != nil {
		return err
	}

	if err := sess.layout.UpdateSettings(id, partial); err != nil {
		sess.mu.Unlock()
		return err
	}
	s.afterMutationLocked(ctx, sess, userID)
	sess.mu.Unlock()

	return nil
}

// Flush synchronously persists any unsaved changes for the user
func (s *LayoutService) Flush(ctx context.Context, userID string) error {
	return s.autosaver.Flush(ctx, userID)
}

// SaveState reports the user's autosave state
func (s *LayoutService) SaveState(userID string) SaveState {
	return s.autosaver.StateFor(userID)
}

// WidgetTypes lists every registered widget descriptor
func (s *LayoutService) WidgetTypes() []registry.Descriptor {
	return registry.All()
}

// SnapshotFor implements the autosaver's SnapshotSource: the copy is
// taken under the session lock so it reflects exactly the state at
// dispatch time.
func (s *LayoutService) SnapshotFor(userID string) (aggregates.Snapshot, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return aggregates.Snapshot{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.layout.Snapshot(), true
}

// StartJanitor begins evicting sessions idle past the configured TTL.
// Evicted sessions get a final flush so no dirty state is lost.
func (s *LayoutService) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.config.SessionIdleTTL / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.evictIdle(ctx)
			case <-s.janitorStop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StopJanitor halts idle-session eviction
func (s *LayoutService) StopJanitor() {
	s.janitorOnce.Do(func() { close(s.janitorStop) })
}

// FlushAll persists every resident dirty session; used during shutdown
func (s *LayoutService) FlushAll(ctx context.Context) {
	s.mu.RLock()
	userIDs := make([]string, 0, len(s.sessions))
	for userID := range s.sessions {
		userIDs = append(userIDs, userID)
	}
	s.mu.RUnlock()

	for _, userID := range userIDs {
		if err := s.autosaver.Flush(ctx, userID); err != nil {
			s.logger.Error("Final flush failed during shutdown",
				zap.String("userId", userID),
				zap.Error(err),
			)
		}
	}
}

// getOrLoadSession returns the resident session for a user, loading the
// saved document or seeding the default layout on first access.
func (s *LayoutService) getOrLoadSession(ctx context.Context, userID string) (*session, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}

	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess, nil
	}

	layout, dirty, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess = &session{layout: layout, lastAccess: time.Now()}
	s.sessions[userID] = sess
	if dirty {
		s.autosaver.MarkDirty(userID)
	}
	return sess, nil
}

// lockSession returns the user's session with its lock held. A session
// the janitor evicted between the map lookup and winning the lock is an
// orphan whose mutations would never be saved, so the lookup restarts;
// the reload hydrates the document the eviction flushed.
func (s *LayoutService) lockSession(ctx context.Context, userID string) (*session, error) {
	for {
		sess, err := s.getOrLoadSession(ctx, userID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		if !sess.evicted {
			return sess, nil
		}
		sess.mu.Unlock()
	}
}

// loadOrSeed resolves a user's layout: saved document (migrated if the
// schema moved on), or a freshly seeded default when none exists. A
// transport failure on load is surfaced, never papered over with a
// seed, so a flaky table cannot silently wipe a user's arrangement.
func (s *LayoutService) loadOrSeed(ctx context.Context, userID string) (*aggregates.Layout, bool, error) {
	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrLayoutNotFound) {
			layout, persisted, seedErr := s.seeder.Seed(ctx, userID)
			if seedErr != nil {
				return nil, false, seedErr
			}
			s.publishEvents(layout)
			return layout, !persisted, nil
		}
		return nil, false, pkgerrors.NewPersistenceLoadError(err)
	}

	migrated, err := s.migrator.Apply(&snap)
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to migrate layout document")
	}
	if err := s.validator.ValidateSnapshot(snap); err != nil {
		return nil, false, pkgerrors.Wrap(err, "saved layout failed validation")
	}

	layout, err := aggregates.FromSnapshot(snap)
	if err != nil {
		return nil, false, err
	}

	// Unregistered types normally hydrate and render as placeholders;
	// strict deployments can refuse the document instead.
	if !s.config.AllowUnknownWidgetTypesOnLoad {
		for _, w := range layout.Widgets() {
			if !registry.IsRegistered(w.Type()) {
				return nil, false, pkgerrors.NewValidationError(
					"saved layout references unregistered widget type: " + string(w.Type()),
				).WithCode(pkgerrors.CodeUnknownWidgetType)
			}
		}
	}

	if migrated {
		s.logger.Info("Migrated layout document to current schema",
			zap.String("userId", userID),
			zap.Int("schemaVersion", layout.SchemaVersion()),
		)
	}
	return layout, migrated, nil
}

// afterMutationLocked runs the post-mutation bookkeeping: publish the
// aggregate's events, mark the layout dirty, and drop stale cached
// renders. Caller holds sess.mu.
func (s *LayoutService) afterMutationLocked(ctx context.Context, sess *session, userID string) {
	sess.lastAccess = time.Now()
	s.publishEvents(sess.layout)
	s.autosaver.MarkDirty(userID)
	s.invalidateRenderCache(ctx, userID)
}

// publishEvents ships the aggregate's uncommitted events, fire and
// forget. Event delivery is observability, not correctness; a broker
// outage never fails a mutation.
func (s *LayoutService) publishEvents(layout *aggregates.Layout) {
	pending := layout.GetUncommittedEvents()
	layout.MarkEventsAsCommitted()

	if !s.config.EnableEventPublishing || s.publisher == nil || len(pending) == 0 {
		return
	}

	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishBatch(publishCtx, pending); err != nil {
			s.logger.Warn("Failed to publish layout events", zap.Error(err))
		}
	}()
}

func (s *LayoutService) invalidateRenderCache(ctx context.Context, userID string) {
	if !s.cacheEnabled() {
		return
	}
	for _, bp := range valueobjects.AllBreakpoints() {
		_ = s.cache.Delete(ctx, fmt.Sprintf("layout:%s:%s", userID, bp))
	}
}

func (s *LayoutService) cacheEnabled() bool {
	return s.config.EnableRenderCache && s.cache != nil
}

// evictIdle flushes and drops sessions idle past the TTL
func (s *LayoutService) evictIdle(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.SessionIdleTTL)

	s.mu.Lock()
	var evict []string
	for userID, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			evict = append(evict, userID)
		}
	}
	s.mu.Unlock()

	for _, userID := range evict {
		if err := s.autosaver.Flush(ctx, userID); err != nil {
			// Keep the session resident; the background loop retries.
			s.logger.Warn("Skipping eviction of session with unsaved changes",
				zap.String("userId", userID),
				zap.Error(err),
			)
			continue
		}

		// A request may have touched the session while the flush ran.
		// Re-check idleness and saved state under both locks; holding
		// sess.mu across the delete means no mutation can slip in between
		// the check and the eviction flag.
		s.mu.Lock()
		sess, ok := s.sessions[userID]
		if !ok {
			s.mu.Unlock()
			continue
		}
		sess.mu.Lock()
		if !sess.lastAccess.Before(cutoff) || s.autosaver.StateFor(userID) != SaveStateClean {
			sess.mu.Unlock()
			s.mu.Unlock()
			continue
		}
		sess.evicted = true
		delete(s.sessions, userID)
		sess.mu.Unlock()
		s.mu.Unlock()

		s.autosaver.Forget(userID)
		s.logger.Debug("Evicted idle layout session", zap.String("userId", userID))
	}
}
