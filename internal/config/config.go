// Package config implements TOML configuration loading for driveconn
// with environment overrides and XDG-style default paths. The secret
// wallet key is only ever read from the environment, never from the
// config file.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	Wallet  WalletConfig  `toml:"wallet"`
	Drive   DriveConfig   `toml:"drive"`
	Cache   CacheConfig   `toml:"cache"`
	Store   StoreConfig   `toml:"store"`
	Monitor MonitorConfig `toml:"monitor"`
	Logging LoggingConfig `toml:"logging"`
}

// WalletConfig locates the identity provider's wallet API.
type WalletConfig struct {
	BaseURL  string `toml:"base_url"`
	Provider string `toml:"provider"`

	// SecretKey authenticates to the wallet API. Populated from
	// DRIVECONN_WALLET_KEY — deliberately not a file key.
	SecretKey string `toml:"-"`
}

// DriveConfig locates the Drive API and the registered OAuth app.
type DriveConfig struct {
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Timeout      string `toml:"timeout"`
}

// CacheConfig controls client handle caching.
type CacheConfig struct {
	TTL string `toml:"ttl"`
}

// StoreConfig locates local state: the fallback token files and the
// check history database.
type StoreConfig struct {
	TokensDir  string `toml:"tokens_dir"`
	LedgerPath string `toml:"ledger_path"`
}

// MonitorConfig controls the monitor command's periodic checks.
type MonitorConfig struct {
	Interval string `toml:"interval"`
}

// LoggingConfig sets the baseline log level; CLI flags override it.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// validLogLevels for Validate.
var validLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that every duration field parses and the log level is
// known. Called by LoadOrDefault after overrides are applied.
func (c *Config) Validate() error {
	durations := map[string]string{
		"cache.ttl":        c.Cache.TTL,
		"drive.timeout":    c.Drive.Timeout,
		"monitor.interval": c.Monitor.Interval,
	}

	for field, raw := range durations {
		if raw == "" {
			continue
		}

		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", field, raw, err)
		}
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("config: invalid logging.level %q (use debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// CacheTTL returns the parsed handle cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL, defaultCacheTTL)
}

// DriveTimeout returns the parsed Drive HTTP timeout.
func (c *Config) DriveTimeout() time.Duration {
	return parseDurationOr(c.Drive.Timeout, defaultDriveTimeout)
}

// MonitorInterval returns the parsed monitor check interval.
func (c *Config) MonitorInterval() time.Duration {
	return parseDurationOr(c.Monitor.Interval, defaultMonitorInterval)
}

// parseDurationOr parses raw, falling back to def for empty or invalid
// values. Validate has already rejected invalid ones on the load path.
func parseDurationOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}

	return d
}
