package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "cruisesync"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "cruisesync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 25
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 5
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// FTP defaults
	if cfg.FTP.Port == 0 {
		cfg.FTP.Port = 21
	}
	if cfg.FTP.ConnectTimeout == 0 {
		cfg.FTP.ConnectTimeout = 30 * time.Second
	}
	if cfg.FTP.RateLimit.Requests == 0 {
		cfg.FTP.RateLimit.Requests = 10
	}
	if cfg.FTP.RateLimit.Burst == 0 {
		cfg.FTP.RateLimit.Burst = 20
	}

	// Sync defaults
	if cfg.Sync.Provider == "" {
		cfg.Sync.Provider = "traveltek"
	}
	if cfg.Sync.ProductionURL == "" {
		cfg.Sync.ProductionURL = "atlasvoyages.com"
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 4
	}
	if cfg.Sync.MaxFileSizeBytes == 0 {
		cfg.Sync.MaxFileSizeBytes = 500_000
	}
	if cfg.Sync.FileTimeoutMs == 0 {
		cfg.Sync.FileTimeoutMs = 30_000
	}
	if cfg.Sync.RetryAttempts == 0 {
		cfg.Sync.RetryAttempts = 3
	}
	if cfg.Sync.RetryDelayMs == 0 {
		cfg.Sync.RetryDelayMs = 1000
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.PIDFile == "" {
		cfg.Server.PIDFile = "/tmp/cruisesync.pid"
	}

	// Scheduler defaults
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "America/New_York"
	}
	if cfg.Scheduler.SyncCron == "" {
		cfg.Scheduler.SyncCron = "0 2 * * *"
	}
	if cfg.Scheduler.PurgeCron == "" {
		cfg.Scheduler.PurgeCron = "0 3 * * *"
	}
	if cfg.Scheduler.CleanupCron == "" {
		cfg.Scheduler.CleanupCron = "0 4 * * *"
	}
	if cfg.Scheduler.StubReportCron == "" {
		cfg.Scheduler.StubReportCron = "0 6 * * *"
	}
	if cfg.Scheduler.MaxRetries == 0 {
		cfg.Scheduler.MaxRetries = 3
	}
	if cfg.Scheduler.RetryInitialDelay == 0 {
		cfg.Scheduler.RetryInitialDelay = 5 * time.Minute
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
