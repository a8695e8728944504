package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homedash-backend/domain/core/aggregates"
	pkgerrors "homedash-backend/pkg/errors"
)

// stubSource hands out canned snapshots keyed by user
type stubSource struct {
	mu    sync.Mutex
	snaps map[string]aggregates.Snapshot
}

func newStubSource() *stubSource {
	return &stubSource{snaps: make(map[string]aggregates.Snapshot)}
}

func (s *stubSource) set(userID string, snap aggregates.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[userID] = snap
}

func (s *stubSource) SnapshotFor(userID string) (aggregates.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[userID]
	return snap, ok
}

// recordingRepo counts saves and can fail or block on demand
type recordingRepo struct {
	mu       sync.Mutex
	failures int
	saved    []aggregates.Snapshot

	// When set, Save signals started and waits for release before
	// returning, letting tests mutate state mid-save.
	started chan struct{}
	release chan struct{}
}

func (r *recordingRepo) Load(ctx context.Context, userID string) (aggregates.Snapshot, error) {
	return aggregates.Snapshot{}, errors.New("not implemented")
}

func (r *recordingRepo) Create(ctx context.Context, snapshot aggregates.Snapshot) error {
	return errors.New("not implemented")
}

func (r *recordingRepo) Save(ctx context.Context, snapshot aggregates.Snapshot) error {
	if r.started != nil {
		r.started <- struct{}{}
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("dynamodb: throughput exceeded")
	}
	r.saved = append(r.saved, snapshot)
	return nil
}

func (r *recordingRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func (r *recordingRepo) savedAt(i int) aggregates.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[i]
}

func newTestAutosaver(repo *recordingRepo, source SnapshotSource) *Autosaver {
	a := NewAutosaver(repo, 20*time.Millisecond, zap.NewNop(), nil)
	a.SetSource(source)
	return a
}

func TestAutosaver_FlushOnCleanUserIsNoOp(t *testing.T) {
	repo := &recordingRepo{}
	a := newTestAutosaver(repo, newStubSource())

	err := a.Flush(context.Background(), "user123")

	assert.NoError(t, err)
	assert.Equal(t, 0, repo.saveCount())
	assert.Equal(t, SaveStateClean, a.StateFor("user123"))
}

func TestAutosaver_MarkDirtyTransitionsState(t *testing.T) {
	a := newTestAutosaver(&recordingRepo{}, newStubSource())

	assert.Equal(t, SaveStateClean, a.StateFor("user123"))
	a.MarkDirty("user123")
	assert.Equal(t, SaveStateDirty, a.StateFor("user123"))
}

func TestAutosaver_FailedSaveStaysDirtyThenRetrySucceeds(t *testing.T) {
	// Arrange: the first write fails, the second goes through
	repo := &recordingRepo{failures: 1}
	source := newStubSource()
	source.set("user123", aggregates.Snapshot{UserID: "user123", Revision: 7})
	a := newTestAutosaver(repo, source)

	a.MarkDirty("user123")

	// Act: first flush hits the failure
	err := a.Flush(context.Background(), "user123")

	// Assert: still dirty, error surfaced and remembered
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePersistenceSaveFailure))
	assert.Equal(t, SaveStateDirty, a.StateFor("user123"))
	assert.Error(t, a.LastError("user123"))

	// Act: retry succeeds without a new mutation
	err = a.Flush(context.Background(), "user123")

	require.NoError(t, err)
	assert.Equal(t, SaveStateClean, a.StateFor("user123"))
	assert.NoError(t, a.LastError("user123"))
	assert.Equal(t, 1, repo.saveCount())
}

func TestAutosaver_BackgroundTickSavesDirtyUsers(t *testing.T) {
	repo := &recordingRepo{}
	source := newStubSource()
	source.set("user123", aggregates.Snapshot{UserID: "user123", Revision: 1})
	a := newTestAutosaver(repo, source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	defer a.Stop()

	a.MarkDirty("user123")

	assert.Eventually(t, func() bool {
		return a.StateFor("user123") == SaveStateClean && repo.saveCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAutosaver_FailedTickStaysDirtyUntilNextTickSucceeds(t *testing.T) {
	// Arrange: the first background save fails, the second goes through
	repo := &recordingRepo{failures: 1}
	source := newStubSource()
	source.set("user123", aggregates.Snapshot{UserID: "user123", Revision: 3})
	a := newTestAutosaver(repo, source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	defer a.Stop()

	a.MarkDirty("user123")

	// The failed tick leaves the tracker dirty with the error recorded
	assert.Eventually(t, func() bool {
		return a.LastError("user123") != nil
	}, 2*time.Second, 5*time.Millisecond)

	// A later tick retries without any new mutation and lands clean
	assert.Eventually(t, func() bool {
		return a.StateFor("user123") == SaveStateClean && repo.saveCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, a.LastError("user123"))
	assert.Equal(t, 3, repo.savedAt(0).Revision)
}

func TestAutosaver_MutationDuringSaveTriggersResave(t *testing.T) {
	// Arrange: saves block until the test releases them
	repo := &recordingRepo{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	source := newStubSource()
	source.set("user123", aggregates.Snapshot{UserID: "user123", Revision: 1})
	a := newTestAutosaver(repo, source)

	a.MarkDirty("user123")

	flushDone := make(chan error, 1)
	go func() {
		flushDone <- a.Flush(context.Background(), "user123")
	}()

	// First save is in flight; a new mutation lands
	<-repo.started
	assert.Equal(t, SaveStateSaving, a.StateFor("user123"))
	a.MarkDirty("user123")
	source.set("user123", aggregates.Snapshot{UserID: "user123", Revision: 2})
	repo.release <- struct{}{}

	// Flush keeps going: the completed save landed dirty, so it saves again
	<-repo.started
	repo.release <- struct{}{}

	require.NoError(t, <-flushDone)
	assert.Equal(t, SaveStateClean, a.StateFor("user123"))

	// The first payload is the state at dispatch time, not the newer one
	require.Equal(t, 2, repo.saveCount())
	assert.Equal(t, 1, repo.savedAt(0).Revision)
	assert.Equal(t, 2, repo.savedAt(1).Revision)
}

func TestAutosaver_EvictedSessionSettlesClean(t *testing.T) {
	repo := &recordingRepo{}
	a := newTestAutosaver(repo, newStubSource())

	a.MarkDirty("user123")
	err := a.Flush(context.Background(), "user123")

	assert.NoError(t, err)
	assert.Equal(t, 0, repo.saveCount())
	assert.Equal(t, SaveStateClean, a.StateFor("user123"))
}

func TestAutosaver_ForgetDropsTracker(t *testing.T) {
	a := newTestAutosaver(&recordingRepo{}, newStubSource())

	a.MarkDirty("user123")
	a.Forget("user123")

	assert.Equal(t, SaveStateClean, a.StateFor("user123"))
}
