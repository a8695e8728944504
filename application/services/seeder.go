package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"homedash-backend/application/ports"
	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/registry"
	pkgerrors "homedash-backend/pkg/errors"
	"homedash-backend/pkg/observability"
)

// defaultWidgetTypes is the starter arrangement every first-time user
// gets. Order matters: grid placements stack top to bottom in this
// sequence.
var defaultWidgetTypes = []registry.WidgetType{
	registry.TypeWelcome,
	registry.TypeClock,
	registry.TypeDueToday,
	registry.TypeInbox,
	registry.TypeJournal,
	registry.TypeGoals,
}

// DefaultSeeder generates the starter layout for users with no saved
// document. Widget IDs are minted fresh per user at seed time, then
// persisted with a create-only write so concurrent first sessions
// converge on one set of IDs instead of each keeping its own.
type DefaultSeeder struct {
	repo    ports.LayoutRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewDefaultSeeder creates a seeder
func NewDefaultSeeder(repo ports.LayoutRepository, logger *zap.Logger, metrics *observability.Metrics) *DefaultSeeder {
	return &DefaultSeeder{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// Seed builds and persists the default layout. The returned persisted
// flag is false only when the create failed on a transport error: the
// user still gets a working in-memory layout and the caller marks it
// dirty so the autosaver retries the write.
//
// When another session created the layout first, the stored document
// wins and is returned instead of the local candidate.
func (s *DefaultSeeder) Seed(ctx context.Context, userID string) (*aggregates.Layout, bool, error) {
	layout, err := aggregates.NewLayout(userID, aggregates.ModeGrid)
	if err != nil {
		return nil, false, err
	}

	for _, t := range defaultWidgetTypes {
		if _, err := layout.AddWidget(t, nil); err != nil {
			return nil, false, pkgerrors.Wrap(err, "failed to build default layout")
		}
	}
	layout.MarkSeeded()

	err = s.repo.Create(ctx, layout.Snapshot())
	if err == nil {
		if s.metrics != nil {
			s.metrics.RecordSeed(ctx)
		}
		s.logger.Info("Seeded default layout",
			zap.String("userId", userID),
			zap.Int("widgetCount", layout.WidgetCount()),
		)
		return layout, true, nil
	}

	if errors.Is(err, ports.ErrLayoutExists) {
		// Lost the race to another session; adopt the stored layout so
		// both sessions see the same widget IDs.
		snap, loadErr := s.repo.Load(ctx, userID)
		if loadErr != nil {
			return nil, false, pkgerrors.NewPersistenceLoadError(loadErr)
		}
		stored, hydrateErr := aggregates.FromSnapshot(snap)
		if hydrateErr != nil {
			return nil, false, hydrateErr
		}
		return stored, true, nil
	}

	// Persistence being down must not block the dashboard. Hand back the
	// local layout; it is dirty and the autosaver will keep retrying.
	s.logger.Warn("Failed to persist seeded layout, continuing with in-memory copy",
		zap.String("userId", userID),
		zap.Error(err),
	)
	return layout, false, nil
}
