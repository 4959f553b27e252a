package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	// PollInterval is how long a long-poll request is held open.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// CacheSize is the number of messages retained for catch-up.
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size"`
	// PresenceMultiplier times PollInterval is how long a user stays online without activity.
	PresenceMultiplier int `mapstructure:"presence_multiplier" yaml:"presence_multiplier"`
	// SweepMultiplier times PollInterval is the presence eviction period.
	SweepMultiplier int `mapstructure:"sweep_multiplier" yaml:"sweep_multiplier"`

	DatabasePath string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTTTL       time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// WSRateLimit caps inbound WebSocket commands per minute; 0 disables the limit.
	WSRateLimit int `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8888",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		PollInterval:       120 * time.Second,
		CacheSize:          200,
		PresenceMultiplier: 2,
		SweepMultiplier:    100,
		DatabasePath:       "pollchat.db",
		JWTSecret:          "change-me",
		JWTIssuer:          "pollchat",
		JWTTTL:             24 * time.Hour,
		WSRateLimit:        60,
	}
}

// PresenceTTL is how long an identity stays online after its last activity.
func (c *Config) PresenceTTL() time.Duration {
	return time.Duration(c.PresenceMultiplier) * c.PollInterval
}

// SweepInterval is how often stale presence is evicted.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepMultiplier) * c.PollInterval
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.PollInterval != 0 {
		c.PollInterval = other.PollInterval
	}
	if other.CacheSize != 0 {
		c.CacheSize = other.CacheSize
	}
	if other.PresenceMultiplier != 0 {
		c.PresenceMultiplier = other.PresenceMultiplier
	}
	if other.SweepMultiplier != 0 {
		c.SweepMultiplier = other.SweepMultiplier
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTTTL != 0 {
		c.JWTTTL = other.JWTTTL
	}
	if other.WSRateLimit != 0 {
		c.WSRateLimit = other.WSRateLimit
	}
}
