package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	FTP       FTPConfig       `mapstructure:"ftp"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()

	// Set config file details
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cruisesync")
	}

	// Enable environment variable reading
	v.SetEnvPrefix("CRUISESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - don't error if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we'll use env vars and defaults
	}

	// Unprefixed environment variables kept for compatibility with
	// existing deployments. These win over the config file.
	applyLegacyEnv(v)

	// Create config struct and unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	SetDefaults(&cfg)

	// Validate configuration
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyLegacyEnv maps the historical unprefixed environment variables
// onto their config keys.
func applyLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"DATABASE_URL":           "database.url",
		"TRAVELTEK_FTP_HOST":     "ftp.host",
		"TRAVELTEK_FTP_USER":     "ftp.user",
		"TRAVELTEK_FTP_PASSWORD": "ftp.password",
		"API_URL":                "sync.api_url",
		"PORT":                   "server.port",
	}
	for env, key := range legacy {
		if val := os.Getenv(env); val != "" {
			v.Set(key, val)
		}
	}

	boolLegacy := map[string]string{
		"TRAVELTEK_FTP_SECURE":            "ftp.secure",
		"TRAVELTEK_FTP_ALLOW_SELF_SIGNED": "ftp.allow_self_signed",
		"FTP_VERBOSE":                     "ftp.verbose",
		"BYPASS_SYNC_ENVIRONMENT_GUARD":   "sync.bypass_environment_guard",
		"ENABLE_SCHEDULED_CRUISE_SYNC":    "scheduler.enabled",
	}
	for env, key := range boolLegacy {
		if val := os.Getenv(env); val != "" {
			v.Set(key, strings.EqualFold(val, "true") || val == "1")
		}
	}
}

// LoadConfigOrDefault loads configuration or returns a default config on error
func LoadConfigOrDefault(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		defaultCfg := &Config{}
		SetDefaults(defaultCfg)
		return defaultCfg
	}
	return cfg
}

// MustLoadConfig loads configuration and panics on error (for use in main.go)
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
