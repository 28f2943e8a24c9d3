package ingestion

import "time"

// SyncStatus is the outcome recorded on a per-file tracking row
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// FileSyncRecord is the per-file delta-sync state. A row is written after
// every attempted file, success or failure.
type FileSyncRecord struct {
	FilePath      string
	FileSize      int64
	FtpModifiedAt *time.Time
	ContentHash   *string
	LastSyncedAt  time.Time
	SyncStatus    SyncStatus
	LastError     string
}

// Unchanged reports whether a freshly listed file can be skipped against
// this record: last attempt succeeded, sizes match, and the FTP timestamps
// match exactly or are absent on either side.
func (r *FileSyncRecord) Unchanged(listed FileInfo) bool {
	if r == nil || r.SyncStatus != SyncStatusSuccess {
		return false
	}
	if r.FileSize != listed.Size {
		return false
	}
	if r.FtpModifiedAt == nil || listed.ModifiedAt == nil {
		return true
	}
	return r.FtpModifiedAt.Unix() == listed.ModifiedAt.Unix()
}

// RunStatus is the lifecycle state of a sync-history row
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// SyncHistoryRecord is one persisted run of the import pipeline
type SyncHistoryRecord struct {
	ID          string         `json:"id"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Status      RunStatus      `json:"status"`
	Options     SyncOptions    `json:"options"`
	Metrics     *ImportMetrics `json:"metrics,omitempty"`
	ErrorCount  int            `json:"errorCount"`
	Errors      []ImportError  `json:"errors,omitempty"`
}
