package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// dryRunMaxFiles caps how far a dry run walks the feed
const dryRunMaxFiles = 100

// GuardConfig is the production environment guard. Non-dry-run syncs
// are refused unless APIURL contains ProductionURL, so a local copy
// pointed at the production database cannot import.
type GuardConfig struct {
	APIURL        string
	ProductionURL string
	Bypass        bool
}

// RunState is the externally visible state of the sync service. Progress
// is a live metrics snapshot, present only while a run is active.
type RunState struct {
	InProgress      bool                     `json:"inProgress"`
	CancelRequested bool                     `json:"cancelRequested"`
	RunID           string                   `json:"runId,omitempty"`
	StartedAt       *time.Time               `json:"startedAt,omitempty"`
	Progress        *ingestion.ImportMetrics `json:"progress,omitempty"`
}

type downloadFunc func(ctx context.Context, path string, opts common.DownloadOptions) common.DownloadResult

// RunObserver receives finished-run metrics, e.g. for Prometheus export
type RunObserver interface {
	RecordRun(status string, m ingestion.ImportMetrics, cacheHitRate float64)
}

// SyncService orchestrates one import run end to end: discovery over
// FTP, per-file download/parse/upsert through a worker pool, delta
// tracking, progress persistence and run finalization. At most one run
// is active per process.
type SyncService struct {
	client   common.FeedClient
	pool     common.FeedPool
	importer common.SailingImporter
	cache    common.ReferenceCache
	fileSync common.FileSyncRepository
	history  common.SyncHistoryRepository
	clock    shared.Clock
	guard    GuardConfig
	observer RunObserver

	mu        sync.Mutex
	running   bool
	cancelled bool
	cancel    context.CancelFunc
	runID     string
	startedAt time.Time
	recorder  *ingestion.MetricsRecorder
}

// NewSyncService creates the sync orchestrator
func NewSyncService(
	client common.FeedClient,
	pool common.FeedPool,
	sailingImporter common.SailingImporter,
	cache common.ReferenceCache,
	fileSync common.FileSyncRepository,
	history common.SyncHistoryRepository,
	clock shared.Clock,
	guard GuardConfig,
) *SyncService {
	return &SyncService{
		client:   client,
		pool:     pool,
		importer: sailingImporter,
		cache:    cache,
		fileSync: fileSync,
		history:  history,
		clock:    clock,
		guard:    guard,
	}
}

// SetObserver attaches a finished-run observer. Not safe to call while
// a run is active.
func (s *SyncService) SetObserver(o RunObserver) {
	s.observer = o
}

// Status returns the current run state
func (s *SyncService) Status() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := RunState{InProgress: s.running, CancelRequested: s.cancelled, RunID: s.runID}
	if s.running {
		t := s.startedAt
		state.StartedAt = &t
		if s.recorder != nil {
			snapshot := s.recorder.Snapshot()
			state.Progress = &snapshot
		}
	}
	return state
}

// Running reports whether a run is active
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cancel requests cancellation of the active run. Returns false when
// nothing is running.
func (s *SyncService) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.cancelled = true
	if s.cancel != nil {
		s.cancel()
	}
	return true
}

func (s *SyncService) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Run executes one sync synchronously and returns its metrics and run ID
func (s *SyncService) Run(ctx context.Context, opts ingestion.SyncOptions) (ingestion.ImportMetrics, string, error) {
	h, err := s.begin(ctx, opts)
	if err != nil {
		return ingestion.ImportMetrics{}, "", err
	}
	defer s.end(h)
	metrics, err := s.execute(h)
	return metrics, h.id, err
}

type runHandle struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	opts     ingestion.SyncOptions
	recorder *ingestion.MetricsRecorder
	logger   common.Logger
}

// begin claims the singleton run slot and allocates the history row
func (s *SyncService) begin(ctx context.Context, opts ingestion.SyncOptions) (*runHandle, error) {
	opts = opts.Normalized()

	if !opts.DryRun {
		if err := s.checkEnvironmentGuard(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, shared.NewSyncInProgressError()
	}
	s.running = true
	s.cancelled = false
	s.mu.Unlock()

	startedAt := s.clock.Now()
	runID, err := s.history.Create(ctx, startedAt, opts)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to create sync history: %w", err)
	}

	logger := common.LoggerFromContext(ctx)
	// The run's context is detached from the caller; a dropped request
	// does not abort the run, only Cancel does.
	runCtx, cancel := context.WithCancel(common.WithLogger(context.Background(), logger))

	recorder := ingestion.NewMetricsRecorder(startedAt)
	if opts.DryRun {
		recorder.SetDryRun()
	}

	s.mu.Lock()
	s.cancel = cancel
	s.runID = runID
	s.startedAt = startedAt
	s.recorder = recorder
	s.mu.Unlock()
	return &runHandle{id: runID, ctx: runCtx, cancel: cancel, opts: opts, recorder: recorder, logger: logger}, nil
}

func (s *SyncService) end(h *runHandle) {
	h.cancel()
	s.mu.Lock()
	s.running = false
	s.cancelled = false
	s.cancel = nil
	s.runID = ""
	s.recorder = nil
	s.mu.Unlock()
}

func (s *SyncService) checkEnvironmentGuard() error {
	if s.guard.Bypass {
		return nil
	}
	if s.guard.ProductionURL != "" && !strings.Contains(s.guard.APIURL, s.guard.ProductionURL) {
		return shared.NewEnvironmentGuardError(s.guard.APIURL)
	}
	return nil
}

func (s *SyncService) execute(h *runHandle) (ingestion.ImportMetrics, error) {
	ctx := h.ctx
	opts := h.opts

	s.cache.ResetStats()

	if err := s.client.ForceReconnect(ctx); err != nil {
		h.logger.Log("error", "feed connection failed", map[string]interface{}{"error": err.Error()})
		return s.finalize(h, ingestion.RunStatusFailed), err
	}
	defer s.client.Disconnect()

	delta := newDeltaTracker(s.fileSync, s.clock, opts.DeltaSyncEnabled())
	delta.load(ctx)

	filter := common.ListFilter{
		Year:              opts.Year,
		Month:             opts.Month,
		LineID:            opts.LineID,
		ShipID:            opts.ShipID,
		MaxFiles:          opts.MaxFiles,
		IncludeHistorical: opts.IncludeHistorical,
	}
	seq := s.client.List(ctx, filter, s.isCancelled)

	if opts.DryRun {
		return s.dryRun(h, seq, delta)
	}

	download := downloadFunc(s.client.Download)
	if opts.Concurrency > 1 {
		if err := s.pool.Init(ctx, opts.FtpPoolSize); err != nil {
			h.logger.Log("error", "feed pool initialization failed", map[string]interface{}{"error": err.Error()})
			return s.finalize(h, ingestion.RunStatusFailed), err
		}
		defer s.pool.Drain()
		download = s.pool.Download
	}

	dlOpts := common.DownloadOptions{
		FileTimeout:   time.Duration(opts.FileTimeoutMs) * time.Millisecond,
		RetryAttempts: opts.RetryAttempts,
		RetryDelay:    time.Duration(opts.RetryDelayMs) * time.Millisecond,
	}
	if opts.SkipOversizedEnabled() {
		dlOpts.MaxFileSizeBytes = opts.MaxFileSizeBytes
	}

	var wg sync.WaitGroup
	var fatalMu sync.Mutex
	var fatalErr error
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if s.isCancelled() || ctx.Err() != nil {
					return
				}
				info, ok, err := seq.Next(ctx)
				if err != nil {
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					fatalMu.Unlock()
					return
				}
				if !ok {
					return
				}
				h.recorder.AddFound(1)
				s.processFile(h, info, dlOpts, download, delta)
			}
		}()
	}
	wg.Wait()

	cancelled := s.isCancelled() || ctx.Err() != nil
	status := ingestion.RunStatusCompleted
	switch {
	case cancelled:
		status = ingestion.RunStatusCancelled
		fatalErr = nil
	case fatalErr != nil:
		status = ingestion.RunStatusFailed
	}

	metrics := s.finalize(h, status)

	if status == ingestion.RunStatusCompleted {
		if linked, err := s.importer.BackfillAlternates(ctx); err != nil {
			h.logger.Log("warn", "alternate sailing backfill failed", map[string]interface{}{"error": err.Error()})
		} else if linked > 0 {
			h.logger.Log("info", "linked alternate sailings", map[string]interface{}{"linked": linked})
		}
	}
	return metrics, fatalErr
}

// dryRun walks discovery without downloading or writing, reporting what
// a real run would attempt. The walk stops after dryRunMaxFiles.
func (s *SyncService) dryRun(h *runHandle, seq common.FileSequence, delta *deltaTracker) (ingestion.ImportMetrics, error) {
	ctx := h.ctx
	for h.recorder.Snapshot().FilesFound < dryRunMaxFiles {
		info, ok, err := seq.Next(ctx)
		if err != nil {
			if s.isCancelled() || ctx.Err() != nil {
				break
			}
			return s.finalize(h, ingestion.RunStatusFailed), err
		}
		if !ok {
			break
		}
		h.recorder.AddFound(1)
		if delta.unchanged(info) {
			h.recorder.RecordSkip(ingestion.ErrorKindUnchanged)
		}
	}
	status := ingestion.RunStatusCompleted
	if s.isCancelled() || ctx.Err() != nil {
		status = ingestion.RunStatusCancelled
	}
	return s.finalize(h, status), nil
}

// processFile runs the per-file pipeline: delta check, identifier
// parse, download, JSON parse, import, tracking.
func (s *SyncService) processFile(h *runHandle, info ingestion.FileInfo, dlOpts common.DownloadOptions, download downloadFunc, delta *deltaTracker) {
	ctx := h.ctx

	if delta.unchanged(info) {
		h.recorder.RecordSkip(ingestion.ErrorKindUnchanged)
		return
	}

	ids := ingestion.ParseFilePath(info.Path)
	if !ids.Complete() {
		err := fmt.Errorf("could not extract IDs from file path %s", info.Path)
		s.fail(h, info, delta, ingestion.ErrorKindMissingFields, err)
		return
	}

	result := download(ctx, info.Path, dlOpts)
	if result.Oversized {
		h.recorder.RecordSkip(ingestion.ErrorKindOversized)
		return
	}
	if result.Err != nil {
		s.fail(h, info, delta, ingestion.ErrorKindDownloadFailed, result.Err)
		return
	}

	payload, err := ingestion.ParsePayload(result.Data)
	if err != nil {
		s.fail(h, info, delta, ingestion.ErrorKindParseError, err)
		return
	}

	outcome, err := s.importer.ImportSailing(ctx, payload, ids, result.Data)
	if err != nil {
		kind := ingestion.ErrorKindUnknown
		var vErr *shared.ValidationError
		if errors.As(err, &vErr) {
			kind = ingestion.ErrorKindMissingFields
		}
		s.fail(h, info, delta, kind, err)
		return
	}

	h.recorder.RecordUpsert(outcome.IsNew, len(payload.Itinerary), hasCheapestPrice(payload))
	delta.recordSuccess(ctx, info, result.Data)
	s.progressTick(h)
}

func (s *SyncService) fail(h *runHandle, info ingestion.FileInfo, delta *deltaTracker, kind ingestion.ErrorKind, err error) {
	h.recorder.RecordFailure(info.Path, kind, err)
	delta.recordFailure(h.ctx, info, err)
	s.progressTick(h)
}

// progressTick persists a metrics snapshot every ProgressUpdateInterval
// attempted files and logs every ProgressLogInterval processed files.
func (s *SyncService) progressTick(h *runHandle) {
	attempted := h.recorder.Attempted()
	if attempted > 0 && attempted%ingestion.ProgressUpdateInterval == 0 {
		if err := s.history.UpdateProgress(h.ctx, h.id, h.recorder.Snapshot()); err != nil {
			h.logger.Log("warn", "failed to persist sync progress", map[string]interface{}{"error": err.Error()})
		}
	}
	processed := h.recorder.Processed()
	if processed > 0 && processed%ingestion.ProgressLogInterval == 0 {
		snap := h.recorder.Snapshot()
		h.logger.Log("info", "sync progress", map[string]interface{}{
			"found":     snap.FilesFound,
			"processed": snap.FilesProcessed,
			"skipped":   snap.FilesSkipped,
			"failed":    snap.FilesFailed,
		})
	}
}

// finalize stamps the run, persists the final history row and logs the
// summary. History writes use a fresh context so a cancelled run still
// records its outcome.
func (s *SyncService) finalize(h *runHandle, status ingestion.RunStatus) ingestion.ImportMetrics {
	h.recorder.SetStubs(s.importer.StubCounters(true))
	completedAt := s.clock.Now()
	h.recorder.Finish(completedAt, status == ingestion.RunStatusCancelled)
	metrics := h.recorder.Snapshot()

	persistCtx := common.WithLogger(context.Background(), h.logger)
	if err := s.history.Finalize(persistCtx, h.id, status, completedAt, metrics); err != nil {
		h.logger.Log("error", "failed to finalize sync history", map[string]interface{}{"runId": h.id, "error": err.Error()})
	}

	cacheStats := s.cache.Stats()
	h.logger.Log("info", "sync run finished", map[string]interface{}{
		"runId":           h.id,
		"status":          string(status),
		"durationMs":      metrics.DurationMs,
		"filesFound":      metrics.FilesFound,
		"filesProcessed":  metrics.FilesProcessed,
		"filesSkipped":    metrics.FilesSkipped,
		"filesFailed":     metrics.FilesFailed,
		"sailingsCreated": metrics.SailingsCreated,
		"sailingsUpdated": metrics.SailingsUpdated,
		"stubsCreated":    metrics.Stubs,
		"cacheHitRate":    cacheStats.HitRate,
	})
	if s.observer != nil {
		s.observer.RecordRun(string(status), metrics, cacheStats.HitRate)
	}
	return metrics
}

// hasCheapestPrice reports whether any lead-price category is present
func hasCheapestPrice(p *ingestion.SailingPayload) bool {
	for _, f := range []ingestion.FlexFloat{p.CheapestInside, p.CheapestOutside, p.CheapestBalcony, p.CheapestSuite} {
		if f.Valid && f.Value > 0 {
			return true
		}
	}
	return false
}
