package config

import "time"

// Default durations, used when the config file leaves fields empty.
const (
	defaultCacheTTL        = 15 * time.Minute
	defaultDriveTimeout    = 30 * time.Second
	defaultMonitorInterval = 5 * time.Minute
)

// defaultProvider is the provider key used when none is configured.
const defaultProvider = "google"

// applyDefaults fills zero-valued fields after file parsing and before
// validation. Paths are filled by the loader because they depend on the
// home directory.
func (c *Config) applyDefaults() {
	if c.Wallet.Provider == "" {
		c.Wallet.Provider = defaultProvider
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
