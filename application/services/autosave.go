package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"homedash-backend/application/ports"
	"homedash-backend/domain/core/aggregates"
	pkgerrors "homedash-backend/pkg/errors"
	"homedash-backend/pkg/observability"
)

// SaveState is the autosave lifecycle state for one user's layout
type SaveState string

const (
	// SaveStateClean means the persisted document matches in-memory state
	SaveStateClean SaveState = "clean"

	// SaveStateDirty means a mutation happened since the last successful save
	SaveStateDirty SaveState = "dirty"

	// SaveStateSaving means a save is in flight
	SaveStateSaving SaveState = "saving"
)

// SnapshotSource hands the autosaver a point-in-time copy of a user's
// layout. The implementation must take the copy under its own session
// lock so mutations racing the dispatch never leak into the payload.
// Returns false when no session is resident for the user.
type SnapshotSource interface {
	SnapshotFor(userID string) (aggregates.Snapshot, bool)
}

// saveTracker is the per-user state machine. dirtyWhileSaving records
// mutations that arrived after a save was dispatched; the completed save
// then lands in Dirty instead of Clean so the next tick re-saves.
type saveTracker struct {
	state            SaveState
	dirtyWhileSaving bool
	lastError        error
	lastSavedAt      time.Time
}

// Autosaver periodically writes dirty layouts through the persistence
// gateway. At most one save per user is in flight at a time; a failed
// save leaves the tracker Dirty and the next tick retries with a fresh
// snapshot. There is no backoff: the interval is the retry cadence.
type Autosaver struct {
	repo     ports.LayoutRepository
	source   SnapshotSource
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	cond     *sync.Cond
	trackers map[string]*saveTracker

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewAutosaver creates an autosaver. The snapshot source is wired
// afterwards via SetSource because the layout service and the autosaver
// reference each other.
func NewAutosaver(repo ports.LayoutRepository, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Autosaver {
	a := &Autosaver{
		repo:     repo,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		trackers: make(map[string]*saveTracker),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// SetSource wires the snapshot source after construction
func (a *Autosaver) SetSource(source SnapshotSource) {
	a.source = source
}

// Start runs the save loop until Stop is called or the context ends
func (a *Autosaver) Start(ctx context.Context) {
	go func() {
		defer close(a.done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.tick(ctx)
			case <-a.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the save loop. Callers flush explicitly before stopping;
// Stop itself does not write anything.
func (a *Autosaver) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

// MarkDirty records that a user's layout changed. During an in-flight
// save the mutation is remembered so the save completion lands Dirty and
// the next tick re-saves the newer state.
func (a *Autosaver) MarkDirty(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.tracker(userID)
	switch t.state {
	case SaveStateClean:
		t.state = SaveStateDirty
	case SaveStateSaving:
		t.dirtyWhileSaving = true
	}
}

// StateFor reports the save state for a user. Users without a tracker
// are Clean.
func (a *Autosaver) StateFor(userID string) SaveState {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.trackers[userID]; ok {
		return t.state
	}
	return SaveStateClean
}

// LastError returns the most recent save failure for a user, or nil
func (a *Autosaver) LastError(userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.trackers[userID]; ok {
		return t.lastError
	}
	return nil
}

// Forget drops the tracker for a user whose session was evicted
func (a *Autosaver) Forget(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.trackers, userID)
}

// Flush synchronously saves until the user's layout is Clean. It waits
// out any in-flight background save first, then keeps saving as long as
// mutations keep landing. Returns the save error on failure, with the
// tracker left Dirty so the background loop retries.
func (a *Autosaver) Flush(ctx context.Context, userID string) error {
	a.mu.Lock()
	for {
		t := a.tracker(userID)
		for t.state == SaveStateSaving {
			a.cond.Wait()
		}
		if t.state == SaveStateClean {
			a.mu.Unlock()
			return nil
		}

		t.state = SaveStateSaving
		t.dirtyWhileSaving = false
		a.mu.Unlock()

		err := a.saveDispatched(ctx, userID)
		if err != nil {
			return pkgerrors.NewPersistenceSaveError(err)
		}

		a.mu.Lock()
	}
}

// tick dispatches one background save per dirty user
func (a *Autosaver) tick(ctx context.Context) {
	a.mu.Lock()
	var dispatch []string
	for userID, t := range a.trackers {
		if t.state == SaveStateDirty {
			t.state = SaveStateSaving
			t.dirtyWhileSaving = false
			dispatch = append(dispatch, userID)
		}
	}
	a.mu.Unlock()

	for _, userID := range dispatch {
		go func(userID string) {
			if err := a.saveDispatched(ctx, userID); err != nil {
				a.logger.Warn("Autosave failed, will retry on next tick",
					zap.String("userId", userID),
					zap.Error(err),
				)
			}
		}(userID)
	}
}

// saveDispatched performs the save for a tracker already moved to
// Saving. The snapshot is taken at dispatch time, under the source's
// session lock, so the payload is exactly the state that existed when
// the save began.
func (a *Autosaver) saveDispatched(ctx context.Context, userID string) error {
	snap, ok := a.source.SnapshotFor(userID)
	if !ok {
		// Session evicted between dirtying and dispatch; nothing to write.
		a.settle(userID, nil)
		return nil
	}

	start := time.Now()
	err := a.repo.Save(ctx, snap)
	if a.metrics != nil {
		a.metrics.RecordSave(ctx, time.Since(start), err)
	}

	a.settle(userID, err)
	return err
}

// settle applies a save outcome to the tracker and wakes flushers
func (a *Autosaver) settle(userID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.tracker(userID)
	t.lastError = err
	if err != nil {
		t.state = SaveStateDirty
	} else {
		t.lastSavedAt = time.Now()
		if t.dirtyWhileSaving {
			t.state = SaveStateDirty
		} else {
			t.state = SaveStateClean
		}
	}
	t.dirtyWhileSaving = false
	a.cond.Broadcast()
}

// tracker returns the user's tracker, creating a Clean one if absent.
// Caller holds a.mu.
func (a *Autosaver) tracker(userID string) *saveTracker {
	t, ok := a.trackers[userID]
	if !ok {
		t = &saveTracker{state: SaveStateClean}
		a.trackers[userID] = t
	}
	return t
}
