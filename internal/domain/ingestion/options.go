package ingestion

// Default tuning values for a sync run
const (
	DefaultMaxFileSizeBytes = 500_000
	DefaultFileTimeoutMs    = 30_000
	DefaultRetryAttempts    = 3
	DefaultRetryDelayMs     = 1_000
	DefaultConcurrency      = 4
	MaxConcurrency          = 8
	ProgressUpdateInterval  = 50
	ProgressLogInterval     = 100
)

// SyncOptions controls one import run. Zero values mean "use default".
type SyncOptions struct {
	DryRun            bool   `json:"dryRun"`
	Year              int    `json:"year"`
	Month             int    `json:"month"`
	LineID            string `json:"lineId"`
	ShipID            string `json:"shipId"`
	MaxFiles          int    `json:"maxFiles"`
	SkipOversized     *bool  `json:"skipOversized"`
	MaxFileSizeBytes  int64  `json:"maxFileSizeBytes"`
	FileTimeoutMs     int    `json:"fileTimeoutMs"`
	RetryAttempts     int    `json:"retryAttempts"`
	RetryDelayMs      int    `json:"retryDelayMs"`
	IncludeHistorical bool   `json:"includeHistorical"`
	Concurrency       int    `json:"concurrency"`
	FtpPoolSize       int    `json:"ftpPoolSize"`
	DeltaSync         *bool  `json:"deltaSync"`
	ForceFullSync     bool   `json:"forceFullSync"`
}

// Normalized returns a copy with defaults applied and bounds enforced
func (o SyncOptions) Normalized() SyncOptions {
	out := o
	if out.MaxFileSizeBytes <= 0 {
		out.MaxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	if out.FileTimeoutMs <= 0 {
		out.FileTimeoutMs = DefaultFileTimeoutMs
	}
	if out.RetryAttempts <= 0 {
		out.RetryAttempts = DefaultRetryAttempts
	}
	if out.RetryDelayMs <= 0 {
		out.RetryDelayMs = DefaultRetryDelayMs
	}
	if out.Concurrency <= 0 {
		out.Concurrency = DefaultConcurrency
	}
	if out.Concurrency > MaxConcurrency {
		out.Concurrency = MaxConcurrency
	}
	if out.FtpPoolSize <= 0 && out.Concurrency > 1 {
		out.FtpPoolSize = out.Concurrency + 1
	}
	if out.SkipOversized == nil {
		t := true
		out.SkipOversized = &t
	}
	if out.DeltaSync == nil {
		t := true
		out.DeltaSync = &t
	}
	return out
}

// SkipOversizedEnabled reports the effective skipOversized flag
func (o SyncOptions) SkipOversizedEnabled() bool {
	return o.SkipOversized == nil || *o.SkipOversized
}

// DeltaSyncEnabled reports the effective delta flag; forceFullSync wins
func (o SyncOptions) DeltaSyncEnabled() bool {
	if o.ForceFullSync {
		return false
	}
	return o.DeltaSync == nil || *o.DeltaSync
}
