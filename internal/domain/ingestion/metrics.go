package ingestion

import (
	"sync"
	"time"
)

// ErrorKind classifies per-file import failures
type ErrorKind string

const (
	ErrorKindOversized      ErrorKind = "oversized"
	ErrorKindDownloadFailed ErrorKind = "download_failed"
	ErrorKindParseError     ErrorKind = "parse_error"
	ErrorKindMissingFields  ErrorKind = "missing_fields"
	ErrorKindUnknown        ErrorKind = "unknown"

	// ErrorKindUnchanged marks a delta-sync skip, not a failure
	ErrorKindUnchanged ErrorKind = "unchanged"
)

// MaxTrackedErrors bounds the rolling per-run error list, in memory and
// as persisted on sync history rows.
const MaxTrackedErrors = 100

// ImportError is one recorded per-file failure
type ImportError struct {
	FilePath  string    `json:"filePath"`
	Error     string    `json:"error"`
	ErrorType ErrorKind `json:"errorType"`
}

// SkipReasons breaks down why files were not fully imported
type SkipReasons struct {
	Unchanged      int `json:"unchanged"`
	Oversized      int `json:"oversized"`
	DownloadFailed int `json:"downloadFailed"`
	ParseError     int `json:"parseError"`
	MissingFields  int `json:"missingFields"`
}

// StubCounters counts reference rows auto-created during a run because
// the vendor referenced an entity the catalog had never seen.
type StubCounters struct {
	CruiseLines int `json:"cruiseLines"`
	Ships       int `json:"ships"`
	Ports       int `json:"ports"`
	Regions     int `json:"regions"`
}

// ImportMetrics is the canonical outcome of one sync run. It is plain
// data; concurrent mutation goes through MetricsRecorder.
type ImportMetrics struct {
	FilesFound       int `json:"filesFound"`
	FilesProcessed   int `json:"filesProcessed"`
	FilesSkipped     int `json:"filesSkipped"`
	FilesFailed      int `json:"filesFailed"`
	SailingsCreated  int `json:"sailingsCreated"`
	SailingsUpdated  int `json:"sailingsUpdated"`
	SailingsUpserted int `json:"sailingsUpserted"`
	StopsInserted    int `json:"stopsInserted"`
	PricesInserted   int `json:"pricesInserted"`

	SkipReasons SkipReasons  `json:"skipReasons"`
	Stubs       StubCounters `json:"stubsCreated"`

	Errors []ImportError `json:"errors,omitempty"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DurationMs  int64      `json:"durationMs"`
	Cancelled   bool       `json:"cancelled"`
	DryRun      bool       `json:"dryRun,omitempty"`
}

// MetricsRecorder accumulates ImportMetrics under a mutex so worker
// goroutines can update counters concurrently.
type MetricsRecorder struct {
	mu sync.Mutex
	m  ImportMetrics
}

// NewMetricsRecorder creates a recorder stamped with the run start time
func NewMetricsRecorder(startedAt time.Time) *MetricsRecorder {
	return &MetricsRecorder{m: ImportMetrics{StartedAt: startedAt}}
}

// SetDryRun marks the run as a dry run
func (r *MetricsRecorder) SetDryRun() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.DryRun = true
}

// AddFound increments the discovery counter
func (r *MetricsRecorder) AddFound(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.FilesFound += n
}

// RecordSkip counts a skipped file under the given reason
func (r *MetricsRecorder) RecordSkip(kind ErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.FilesSkipped++
	switch kind {
	case ErrorKindOversized:
		r.m.SkipReasons.Oversized++
	default:
		r.m.SkipReasons.Unchanged++
	}
}

// RecordFailure counts a failed file, classifies it, and appends to the
// rolling error list, dropping the oldest entries past MaxTrackedErrors.
func (r *MetricsRecorder) RecordFailure(filePath string, kind ErrorKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.FilesFailed++
	switch kind {
	case ErrorKindDownloadFailed:
		r.m.SkipReasons.DownloadFailed++
	case ErrorKindParseError:
		r.m.SkipReasons.ParseError++
	case ErrorKindMissingFields:
		r.m.SkipReasons.MissingFields++
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.m.Errors = append(r.m.Errors, ImportError{FilePath: filePath, Error: msg, ErrorType: kind})
	if len(r.m.Errors) > MaxTrackedErrors {
		r.m.Errors = r.m.Errors[len(r.m.Errors)-MaxTrackedErrors:]
	}
}

// RecordUpsert counts one successfully imported sailing. A file counts
// once toward pricesInserted no matter how many lead-price categories
// it carries.
func (r *MetricsRecorder) RecordUpsert(isNew bool, stops int, hasPrice bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.FilesProcessed++
	r.m.SailingsUpserted++
	if isNew {
		r.m.SailingsCreated++
	} else {
		r.m.SailingsUpdated++
	}
	r.m.StopsInserted += stops
	if hasPrice {
		r.m.PricesInserted++
	}
}

// SetStubs records stub counters taken from the reference resolver
func (r *MetricsRecorder) SetStubs(s StubCounters) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Stubs = s
}

// Finish stamps completion and duration
func (r *MetricsRecorder) Finish(completedAt time.Time, cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := completedAt
	r.m.CompletedAt = &t
	r.m.DurationMs = completedAt.Sub(r.m.StartedAt).Milliseconds()
	r.m.Cancelled = cancelled
}

// Snapshot returns a copy safe for JSON serialization while workers run
func (r *MetricsRecorder) Snapshot() ImportMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.m
	out.Errors = append([]ImportError(nil), r.m.Errors...)
	if r.m.CompletedAt != nil {
		t := *r.m.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Attempted returns processed + failed, the cadence base for progress persistence
func (r *MetricsRecorder) Attempted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m.FilesProcessed + r.m.FilesFailed
}

// Processed returns the processed count, the cadence base for progress logging
func (r *MetricsRecorder) Processed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m.FilesProcessed
}
