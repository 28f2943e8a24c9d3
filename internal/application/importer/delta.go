package importer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// deltaTracker decides which listed files can be skipped and records
// the per-file outcome of every attempt. Tracking writes are best
// effort: a failed write costs one redundant download next run, so it
// is logged and swallowed rather than failing the file.
type deltaTracker struct {
	repo    common.FileSyncRepository
	clock   shared.Clock
	enabled bool

	mu    sync.Mutex
	known map[string]*ingestion.FileSyncRecord
}

func newDeltaTracker(repo common.FileSyncRepository, clock shared.Clock, enabled bool) *deltaTracker {
	return &deltaTracker{
		repo:    repo,
		clock:   clock,
		enabled: enabled,
		known:   make(map[string]*ingestion.FileSyncRecord),
	}
}

// load reads all tracking rows up front. A failed load degrades to a
// full sync.
func (t *deltaTracker) load(ctx context.Context) {
	if !t.enabled {
		return
	}
	known, err := t.repo.LoadAll(ctx)
	if err != nil {
		common.LoggerFromContext(ctx).Log("warn", "failed to load file sync state, falling back to full sync",
			map[string]interface{}{"error": err.Error()})
		return
	}
	t.mu.Lock()
	t.known = known
	t.mu.Unlock()
}

// unchanged reports whether the listed file matches its last successful sync
func (t *deltaTracker) unchanged(info ingestion.FileInfo) bool {
	if !t.enabled {
		return false
	}
	t.mu.Lock()
	rec := t.known[info.Path]
	t.mu.Unlock()
	return rec.Unchanged(info)
}

func (t *deltaTracker) recordSuccess(ctx context.Context, info ingestion.FileInfo, data []byte) {
	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])
	t.write(ctx, &ingestion.FileSyncRecord{
		FilePath:      info.Path,
		FileSize:      info.Size,
		FtpModifiedAt: info.ModifiedAt,
		ContentHash:   &hash,
		LastSyncedAt:  t.clock.Now(),
		SyncStatus:    ingestion.SyncStatusSuccess,
	})
}

func (t *deltaTracker) recordFailure(ctx context.Context, info ingestion.FileInfo, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	t.write(ctx, &ingestion.FileSyncRecord{
		FilePath:      info.Path,
		FileSize:      info.Size,
		FtpModifiedAt: info.ModifiedAt,
		LastSyncedAt:  t.clock.Now(),
		SyncStatus:    ingestion.SyncStatusFailed,
		LastError:     msg,
	})
}

func (t *deltaTracker) write(ctx context.Context, rec *ingestion.FileSyncRecord) {
	if err := t.repo.Record(ctx, rec); err != nil {
		common.LoggerFromContext(ctx).Log("warn", "failed to record file sync state",
			map[string]interface{}{"filePath": rec.FilePath, "error": err.Error()})
		return
	}
	t.mu.Lock()
	t.known[rec.FilePath] = rec
	t.mu.Unlock()
}
