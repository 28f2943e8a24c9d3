package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/application/importer"
	"github.com/atlasvoyages/cruisesync/internal/application/maintenance"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
)

// Jobs carries the services the scheduler drives
type Jobs struct {
	Sync    *importer.ScheduledSync
	Purge   *maintenance.PurgeService
	Cleanup *maintenance.CleanupService
	Stubs   *maintenance.StubReportService
}

// Scheduler runs the recurring pipeline jobs on cron expressions in the
// configured timezone. Jobs with an empty expression are not registered.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.SchedulerConfig
	jobs   Jobs
	logger common.Logger
}

// New builds the scheduler; it fails when the timezone is unknown or a
// cron expression does not parse.
func New(cfg *config.SchedulerConfig, jobs Jobs, logger common.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		cfg:    cfg,
		jobs:   jobs,
		logger: logger,
	}

	entries := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{"sync", cfg.SyncCron, s.runSync},
		{"purge", cfg.PurgeCron, s.runPurge},
		{"cleanup", cfg.CleanupCron, s.runCleanup},
		{"stub-report", cfg.StubReportCron, s.runStubReport},
	}
	for _, entry := range entries {
		if entry.spec == "" {
			continue
		}
		run := entry.run
		name := entry.name
		_, err := s.cron.AddFunc(entry.spec, func() {
			ctx := common.WithLogger(context.Background(), s.logger)
			s.logger.Log("info", "scheduled job starting", map[string]interface{}{"job": name})
			run(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression for %s job: %w", name, err)
		}
	}
	return s, nil
}

// Start begins running jobs. It is a no-op scheduler-wise until the
// first expression fires.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Log("info", "scheduler started", map[string]interface{}{
		"timezone":   s.cfg.Timezone,
		"syncCron":   s.cfg.SyncCron,
		"purgeCron":  s.cfg.PurgeCron,
		"cleanup":    s.cfg.CleanupCron,
		"stubReport": s.cfg.StubReportCron,
	})
}

// Stop halts scheduling and waits for running jobs up to the context
// deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Log("warn", "scheduler stop timed out with jobs still running", nil)
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	if err := s.jobs.Sync.Run(ctx); err != nil {
		var lockErr *shared.LockNotAcquiredError
		if errors.As(err, &lockErr) {
			return
		}
		s.logger.Log("error", "scheduled sync failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Scheduler) runPurge(ctx context.Context) {
	result, err := s.jobs.Purge.PurgeExpired(ctx)
	if err != nil {
		s.logger.Log("error", "scheduled purge failed", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Log("info", "scheduled purge completed", map[string]interface{}{
		"purged":     result.PurgedCount,
		"durationMs": result.DurationMs,
	})
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	result, err := s.jobs.Cleanup.Run(ctx, nil)
	if err != nil {
		s.logger.Log("error", "scheduled cleanup failed", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Log("info", "scheduled cleanup completed", map[string]interface{}{
		"sailings":   result.Counts.Sailings,
		"cutoffDate": result.CutoffDate,
		"durationMs": result.DurationMs,
	})
}

func (s *Scheduler) runStubReport(ctx context.Context) {
	report, err := s.jobs.Stubs.Report(ctx)
	if err != nil {
		s.logger.Log("error", "scheduled stub report failed", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Log("info", "stub report", map[string]interface{}{
		"cruiseLines": report.CruiseLines,
		"ships":       report.Ships,
		"ports":       report.Ports,
		"regions":     report.Regions,
	})
}
