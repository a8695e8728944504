package ports

import (
	"context"
	"errors"

	"homedash-backend/domain/core/aggregates"
	"homedash-backend/domain/events"
)

// ErrLayoutNotFound is the sentinel a repository returns when the user
// has no saved layout yet. Callers must distinguish it from a transport
// failure: NotFound triggers default-layout seeding, anything else must
// surface as a load failure and never be papered over with a fresh seed.
var ErrLayoutNotFound = errors.New("layout not found")

// ErrLayoutExists is returned by Create when another session stored a
// layout for the user first. The seeder adopts the stored layout instead
// of overwriting it.
var ErrLayoutExists = errors.New("layout already exists")

// LayoutRepository is the persistence gateway for layout documents,
// keyed by user ID with whole-document upsert semantics.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation.
type LayoutRepository interface {
	// Load retrieves the saved layout document for a user.
	// Returns ErrLayoutNotFound when no record exists.
	Load(ctx context.Context, userID string) (aggregates.Snapshot, error)

	// Save stores the full layout document, replacing any prior record.
	Save(ctx context.Context, snapshot aggregates.Snapshot) error

	// Create stores the document only if the user has none yet.
	// Returns ErrLayoutExists when a concurrent session won the race.
	Create(ctx context.Context, snapshot aggregates.Snapshot) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching rendered layout models
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
