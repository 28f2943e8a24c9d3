package config

// SyncConfig holds import pipeline configuration
type SyncConfig struct {
	// Public URL of this deployment. Non-dry-run syncs are refused
	// unless it contains ProductionURL or BypassEnvironmentGuard is set,
	// so a local copy pointed at the production database cannot import.
	APIURL string `mapstructure:"api_url"`

	// ProductionURL is the hostname fragment the guard matches against
	ProductionURL string `mapstructure:"production_url"`

	// Skip the production environment guard
	BypassEnvironmentGuard bool `mapstructure:"bypass_environment_guard"`

	// Provider identifier recorded on every imported row
	Provider string `mapstructure:"provider"`

	// Default worker count for concurrent imports (clamped to 8)
	Concurrency int `mapstructure:"concurrency" validate:"min=0,max=64"`

	// Files larger than this are skipped when skip_oversized is on
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes" validate:"min=0"`

	// Per-file download timeout in milliseconds
	FileTimeoutMs int `mapstructure:"file_timeout_ms" validate:"min=0"`

	// Download retry policy
	RetryAttempts int `mapstructure:"retry_attempts" validate:"min=0,max=10"`
	RetryDelayMs  int `mapstructure:"retry_delay_ms" validate:"min=0"`

	// Days of slack before a finished sailing is eligible for cleanup
	CleanupDaysBuffer int `mapstructure:"cleanup_days_buffer" validate:"min=0"`
}
