package config

import "time"

// ServerConfig holds HTTP control surface configuration
type ServerConfig struct {
	// Listen address, e.g. "0.0.0.0"
	Host string `mapstructure:"host"`

	// Listen port
	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	// Request timeouts
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// PID file enforcing a single daemon instance per host
	PIDFile string `mapstructure:"pid_file"`
}

// SchedulerConfig holds the recurring-job configuration
type SchedulerConfig struct {
	// Master switch for all scheduled jobs
	Enabled bool `mapstructure:"enabled"`

	// IANA timezone the cron expressions are evaluated in
	Timezone string `mapstructure:"timezone"`

	// Cron expressions (standard 5-field format)
	SyncCron       string `mapstructure:"sync_cron"`
	PurgeCron      string `mapstructure:"purge_cron"`
	CleanupCron    string `mapstructure:"cleanup_cron"`
	StubReportCron string `mapstructure:"stub_report_cron"`

	// Retry policy for the scheduled sync
	MaxRetries        int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"`
}
