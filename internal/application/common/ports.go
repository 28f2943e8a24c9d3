package common

import (
	"context"
	"time"

	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
)

// RefKind identifies one of the four cached reference-entity kinds
type RefKind string

const (
	RefCruiseLine RefKind = "cruise_line"
	RefShip       RefKind = "ship"
	RefPort       RefKind = "port"
	RefRegion     RefKind = "region"
)

// CacheStats is the observable state of the reference cache
type CacheStats struct {
	Sizes   map[RefKind]int `json:"sizes"`
	Total   int             `json:"total"`
	Max     int             `json:"max"`
	Hits    int64           `json:"hits"`
	Misses  int64           `json:"misses"`
	HitRate float64         `json:"hitRate"`
}

// ReferenceCache maps (kind, provider identifier) to internal catalog IDs.
// Safe for concurrent use by import workers.
type ReferenceCache interface {
	Get(kind RefKind, key string) (string, bool)
	Set(kind RefKind, key, id string)
	Stats() CacheStats
	Clear()
	ResetStats()
}

// ListFilter narrows feed discovery
type ListFilter struct {
	Year              int
	Month             int
	LineID            string
	ShipID            string
	MaxFiles          int
	IncludeHistorical bool
}

// FileSequence is a lazy, finite, non-restartable stream of discovered
// feed files. Workers pull one item at a time; processing can begin
// before discovery completes.
type FileSequence interface {
	// Next returns the next file, or ok=false when the sequence is
	// exhausted or discovery was cancelled. A non-nil error reports a
	// fatal listing failure.
	Next(ctx context.Context) (info ingestion.FileInfo, ok bool, err error)
}

// DownloadOptions tunes a single file download
type DownloadOptions struct {
	MaxFileSizeBytes int64
	FileTimeout      time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
}

// DownloadResult is the outcome of one file download
type DownloadResult struct {
	Data      []byte
	Oversized bool
	Err       error
}

// FeedClient is the control-connection view of the upstream FTP feed
type FeedClient interface {
	// ForceReconnect closes any existing control connection and opens a
	// fresh one.
	ForceReconnect(ctx context.Context) error

	// Disconnect closes the control connection if open
	Disconnect()

	// TestConnection probes the feed with a transient connection that
	// does not disturb the control connection.
	TestConnection(ctx context.Context) (string, error)

	// AvailableYears lists the numeric year directories at the feed root
	AvailableYears(ctx context.Context) ([]int, error)

	// List lazily walks /YYYY/MM/LINE/SHIP and yields .json files.
	// cancelled is polled between directory levels.
	List(ctx context.Context, filter ListFilter, cancelled func() bool) FileSequence

	// Download fetches one file over the control connection with the
	// retry discipline from opts.
	Download(ctx context.Context, path string, opts DownloadOptions) DownloadResult
}

// FeedPool is a fixed-size pool of authenticated feed connections used
// for parallel downloads.
type FeedPool interface {
	// Init opens the pool at the given size
	Init(ctx context.Context, size int) error

	// Download fetches one file, acquiring and releasing a pooled
	// connection per attempt.
	Download(ctx context.Context, path string, opts DownloadOptions) DownloadResult

	// Drain closes all pooled connections
	Drain()
}

// ImportOutcome reports what a sailing upsert did
type ImportOutcome struct {
	IsNew bool
}

// SailingImporter is the idempotent per-file write path into the catalog
type SailingImporter interface {
	// ImportSailing upserts one sailing and all its children in a single
	// transaction. raw, when non-nil, is stored as the sailing's raw payload.
	ImportSailing(ctx context.Context, payload *ingestion.SailingPayload, ids ingestion.PathIdentifiers, raw []byte) (ImportOutcome, error)

	// BackfillAlternates links alternate-sailing rows whose provider
	// identifier has since been ingested. Returns the number linked.
	BackfillAlternates(ctx context.Context) (int, error)

	// StubCounters returns and resets the run's stub-creation counters
	StubCounters(reset bool) ingestion.StubCounters
}

// FileSyncRepository persists per-file delta-sync state
type FileSyncRepository interface {
	LoadAll(ctx context.Context) (map[string]*ingestion.FileSyncRecord, error)
	Record(ctx context.Context, rec *ingestion.FileSyncRecord) error
}

// SyncHistoryRepository persists run history
type SyncHistoryRepository interface {
	Create(ctx context.Context, startedAt time.Time, options ingestion.SyncOptions) (string, error)
	UpdateProgress(ctx context.Context, id string, metrics ingestion.ImportMetrics) error
	Finalize(ctx context.Context, id string, status ingestion.RunStatus, completedAt time.Time, metrics ingestion.ImportMetrics) error
	List(ctx context.Context, limit int) ([]ingestion.SyncHistoryRecord, error)
	Get(ctx context.Context, id string) (*ingestion.SyncHistoryRecord, error)
}

// AdvisoryLocker serializes scheduled runs across replicas
type AdvisoryLocker interface {
	TryLock(ctx context.Context, name string) (bool, error)
	Unlock(ctx context.Context, name string) error
}

// PurgeResult reports one raw-payload purge
type PurgeResult struct {
	PurgedCount     int64      `json:"purgedCount"`
	MaxSizeBytes    int64      `json:"maxSizeBytes"`
	OldestExpiredAt *time.Time `json:"oldestExpiredAt,omitempty"`
	DurationMs      int64      `json:"durationMs"`
}

// StorageStats describes the raw-payload table
type StorageStats struct {
	TotalRecords int64   `json:"totalRecords"`
	TotalBytes   int64   `json:"totalBytes"`
	AvgBytes     float64 `json:"avgBytes"`
	MaxBytes     int64   `json:"maxBytes"`
	ExpiredCount int64   `json:"expiredCount"`
	ExpiringSoon int64   `json:"expiringWithin24h"`
}

// RawPayloadRepository stores and purges raw vendor payloads
type RawPayloadRepository interface {
	PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error)
	Stats(ctx context.Context, now time.Time) (StorageStats, error)
}

// CleanupCounts reports rows per kind touched by past-sailing cleanup
type CleanupCounts struct {
	Sailings    int64 `json:"sailings"`
	Regions     int64 `json:"sailingRegions"`
	Stops       int64 `json:"sailingStops"`
	CabinPrices int64 `json:"cabinPrices"`
	RawPayloads int64 `json:"rawPayloads"`
}

// CleanupPreview is the dry view of a past-sailing cleanup
type CleanupPreview struct {
	Counts        CleanupCounts `json:"counts"`
	CutoffDate    string        `json:"cutoffDate"`
	OldestEndDate *time.Time    `json:"oldestEndDate,omitempty"`
}

// CleanupResult is the report of an executed past-sailing cleanup
type CleanupResult struct {
	Counts     CleanupCounts `json:"counts"`
	CutoffDate string        `json:"cutoffDate"`
	DurationMs int64         `json:"durationMs"`
}

// SailingCleanupRepository deletes sailings whose end date has passed
type SailingCleanupRepository interface {
	Preview(ctx context.Context, cutoff time.Time) (CleanupPreview, error)
	Run(ctx context.Context, cutoff time.Time) (CleanupResult, error)
}

// StubEntry is one needs_review catalog row in the stub report
type StubEntry struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// StubReport aggregates needs_review rows and port coordinate coverage
type StubReport struct {
	CruiseLines int64 `json:"cruiseLines"`
	Ships       int64 `json:"ships"`
	Ports       int64 `json:"ports"`
	Regions     int64 `json:"regions"`

	ActivePorts           int64 `json:"activePorts"`
	ActivePortsWithCoords int64 `json:"activePortsWithCoords"`
	OrphanPorts           int64 `json:"orphanPorts"`
	OrphanPortsWithCoords int64 `json:"orphanPortsWithCoords"`

	Oldest []StubEntry `json:"oldest"`
}

// CoverageStats is the catalog-wide metadata coverage report
type CoverageStats struct {
	ShipsTotal        int64 `json:"shipsTotal"`
	ShipsWithImage    int64 `json:"shipsWithImage"`
	ShipsWithDecks    int64 `json:"shipsWithDeckPlans"`
	ShipsNeedsReview  int64 `json:"shipsNeedsReview"`
	LinesTotal        int64 `json:"cruiseLinesTotal"`
	LinesWithLogo     int64 `json:"cruiseLinesWithLogo"`
	LinesNeedsReview  int64 `json:"cruiseLinesNeedsReview"`
	PortsTotal        int64 `json:"portsTotal"`
	PortsActive       int64 `json:"portsActive"`
	PortsWithCoords   int64 `json:"portsWithCoordinates"`
	PortsNeedsReview  int64 `json:"portsNeedsReview"`
	RegionsTotal      int64 `json:"regionsTotal"`
	RegionsNeedsReview int64 `json:"regionsNeedsReview"`
	SailingsTotal     int64 `json:"sailingsTotal"`
	SailingsFuture    int64 `json:"sailingsActiveFuture"`
}

// StubReportRepository aggregates stub and coverage statistics
type StubReportRepository interface {
	StubReport(ctx context.Context) (StubReport, error)
	CoverageStats(ctx context.Context, now time.Time) (CoverageStats, error)
}
