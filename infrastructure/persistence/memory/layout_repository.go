// Package memory provides an in-memory layout repository for local
// development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"homedash-backend/application/ports"
	"homedash-backend/domain/core/aggregates"
)

// LayoutRepository stores layout documents in a map. Documents round-trip
// through JSON so the store behaves like the real gateway: callers get
// copies, never shared references.
type LayoutRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewLayoutRepository creates an empty in-memory repository
func NewLayoutRepository() *LayoutRepository {
	return &LayoutRepository{
		docs: make(map[string][]byte),
	}
}

// Load retrieves the layout document for a user
func (r *LayoutRepository) Load(ctx context.Context, userID string) (aggregates.Snapshot, error) {
	r.mu.RLock()
	doc, ok := r.docs[userID]
	r.mu.RUnlock()

	if !ok {
		return aggregates.Snapshot{}, ports.ErrLayoutNotFound
	}

	var snap aggregates.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return aggregates.Snapshot{}, fmt.Errorf("failed to decode layout document: %w", err)
	}
	return snap, nil
}

// Save stores the full layout document, replacing any prior record
func (r *LayoutRepository) Save(ctx context.Context, snapshot aggregates.Snapshot) error {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode layout document: %w", err)
	}

	r.mu.Lock()
	r.docs[snapshot.UserID] = doc
	r.mu.Unlock()
	return nil
}

// Create stores the document only if the user has none yet
func (r *LayoutRepository) Create(ctx context.Context, snapshot aggregates.Snapshot) error {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode layout document: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[snapshot.UserID]; exists {
		return ports.ErrLayoutExists
	}
	r.docs[snapshot.UserID] = doc
	return nil
}

// Len reports how many users have a stored layout
func (r *LayoutRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
