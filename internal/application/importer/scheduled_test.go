package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

type fakeLocker struct {
	held    bool
	locks   int
	unlocks int
	lockErr error
}

func (l *fakeLocker) TryLock(ctx context.Context, name string) (bool, error) {
	l.locks++
	if l.lockErr != nil {
		return false, l.lockErr
	}
	return !l.held, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, name string) error {
	l.unlocks++
	return nil
}

type fakeRunner struct {
	errs  []error
	calls int
}

func (r *fakeRunner) Run(ctx context.Context, opts ingestion.SyncOptions) (ingestion.ImportMetrics, string, error) {
	idx := r.calls
	r.calls++
	if idx < len(r.errs) && r.errs[idx] != nil {
		return ingestion.ImportMetrics{}, "", r.errs[idx]
	}
	return ingestion.ImportMetrics{FilesProcessed: 10}, "run-1", nil
}

func newScheduled(runner *fakeRunner, locker *fakeLocker, clock *shared.MockClock) *ScheduledSync {
	return NewScheduledSync(runner, locker, clock, 3, 5*time.Minute)
}

func TestScheduledSyncHappyPath(t *testing.T) {
	locker := &fakeLocker{}
	runner := &fakeRunner{}
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC))

	err := newScheduled(runner, locker, clock).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
	assert.Empty(t, clock.Slept)
}

func TestScheduledSyncSkipsWhenLockHeld(t *testing.T) {
	locker := &fakeLocker{held: true}
	runner := &fakeRunner{}
	clock := shared.NewMockClock(time.Time{})

	err := newScheduled(runner, locker, clock).Run(context.Background())
	var lockErr *shared.LockNotAcquiredError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, SyncLockName, lockErr.LockName)
	assert.Equal(t, 0, runner.calls)
	assert.Equal(t, 0, locker.unlocks)
}

func TestScheduledSyncRetriesTransientFailures(t *testing.T) {
	locker := &fakeLocker{}
	runner := &fakeRunner{errs: []error{
		errors.New("ftp dial feed.example.com:21 failed: connection timeout"),
		errors.New("read: network is unreachable"),
		nil,
	}}
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC))

	err := newScheduled(runner, locker, clock).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls)
	// Back-off doubles from the initial delay
	assert.Equal(t, []time.Duration{5 * time.Minute, 10 * time.Minute}, clock.Slept)
	assert.Equal(t, 1, locker.unlocks)
}

func TestScheduledSyncStopsOnNonRetryableError(t *testing.T) {
	locker := &fakeLocker{}
	runner := &fakeRunner{errs: []error{errors.New("invalid configuration: provider missing")}}
	clock := shared.NewMockClock(time.Time{})

	err := newScheduled(runner, locker, clock).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Empty(t, clock.Slept)
	assert.Equal(t, 1, locker.unlocks)
}

func TestScheduledSyncGivesUpAfterMaxRetries(t *testing.T) {
	locker := &fakeLocker{}
	transient := errors.New("ftp connection reset by peer: socket closed")
	runner := &fakeRunner{errs: []error{transient, transient, transient}}
	clock := shared.NewMockClock(time.Time{})

	err := newScheduled(runner, locker, clock).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, runner.calls)
	assert.Len(t, clock.Slept, 2)
	assert.Equal(t, 1, locker.unlocks)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("dial tcp: ECONNREFUSED")))
	assert.True(t, isRetryable(errors.New("lookup feed.example.com: ENOTFOUND")))
	assert.True(t, isRetryable(errors.New("download timed out after 30s")))
	assert.False(t, isRetryable(errors.New("duplicate key value violates unique constraint")))
	assert.False(t, isRetryable(nil))
}
