package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// SyncLockName is the advisory lock serializing scheduled syncs across replicas
const SyncLockName = "cruise_sync_lock"

// retryableFragments classify transient infrastructure failures worth a
// scheduled retry. Anything else (bad data, logic errors) fails the job.
var retryableFragments = []string{
	"connect", "timeout", "econnrefused", "enotfound", "network", "ftp", "socket",
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

type syncRunner interface {
	Run(ctx context.Context, opts ingestion.SyncOptions) (ingestion.ImportMetrics, string, error)
}

// ScheduledSync wraps the sync service for cron execution: cluster-wide
// advisory locking plus retry with doubling back-off for transient
// failures.
type ScheduledSync struct {
	runner       syncRunner
	locker       common.AdvisoryLocker
	clock        shared.Clock
	maxRetries   int
	initialDelay time.Duration
}

// NewScheduledSync creates the scheduled-sync wrapper
func NewScheduledSync(runner syncRunner, locker common.AdvisoryLocker, clock shared.Clock, maxRetries int, initialDelay time.Duration) *ScheduledSync {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if initialDelay <= 0 {
		initialDelay = 5 * time.Minute
	}
	return &ScheduledSync{
		runner:       runner,
		locker:       locker,
		clock:        clock,
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
	}
}

// Run executes one scheduled sync. When another replica holds the lock
// the job is skipped with LockNotAcquiredError.
func (s *ScheduledSync) Run(ctx context.Context) error {
	logger := common.LoggerFromContext(ctx)

	acquired, err := s.locker.TryLock(ctx, SyncLockName)
	if err != nil {
		return fmt.Errorf("advisory lock check failed: %w", err)
	}
	if !acquired {
		logger.Log("info", "scheduled sync skipped, another replica holds the lock", nil)
		return shared.NewLockNotAcquiredError(SyncLockName)
	}
	defer func() {
		// Unlock must run even when the job's context died
		unlockCtx := common.WithLogger(context.Background(), logger)
		if err := s.locker.Unlock(unlockCtx, SyncLockName); err != nil {
			logger.Log("error", "failed to release sync advisory lock", map[string]interface{}{"error": err.Error()})
		}
	}()

	delay := s.initialDelay
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		metrics, runID, err := s.runner.Run(ctx, ingestion.SyncOptions{})
		if err == nil {
			logger.Log("info", "scheduled sync completed", map[string]interface{}{
				"runId":          runID,
				"attempt":        attempt,
				"filesProcessed": metrics.FilesProcessed,
				"filesFailed":    metrics.FilesFailed,
			})
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			logger.Log("error", "scheduled sync failed with non-retryable error", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}
		if attempt < s.maxRetries {
			logger.Log("warn", "scheduled sync failed, retrying", map[string]interface{}{
				"attempt":      attempt,
				"retryDelayMs": delay.Milliseconds(),
				"error":        err.Error(),
			})
			s.clock.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("scheduled sync failed after %d attempts: %w", s.maxRetries, lastErr)
}
