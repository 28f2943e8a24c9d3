package config

import "time"

// FTPConfig holds vendor FTP connection configuration
type FTPConfig struct {
	// FTP server hostname
	Host string `mapstructure:"host" validate:"required"`

	// Port, 21 unless the vendor says otherwise
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`

	// Credentials
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`

	// Use explicit FTPS (AUTH TLS) for the control connection
	Secure bool `mapstructure:"secure"`

	// Accept the vendor's self-signed certificate
	AllowSelfSigned bool `mapstructure:"allow_self_signed"`

	// Log every FTP command and reply
	Verbose bool `mapstructure:"verbose"`

	// Dial and control-connection timeout
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// Directory listing rate limit (requests per second)
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles FTP control commands
type RateLimitConfig struct {
	Requests float64 `mapstructure:"requests" validate:"min=0"`
	Burst    int     `mapstructure:"burst" validate:"min=0"`
}
