package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// appDir is the directory name under the user's config and data roots.
const appDir = "driveconn"

// DefaultPath returns the default config file location
// (~/.config/driveconn/config.toml or the platform equivalent).
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving config dir: %w", err)
	}

	return filepath.Join(base, appDir, "config.toml"), nil
}

// defaultDataDir returns the root for local state (token files, ledger).
func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home dir: %w", err)
	}

	return filepath.Join(home, ".local", "share", appDir), nil
}

// LoadOrDefault loads configuration from path, or from the environment
// override / default location when path is empty. A missing file is not
// an error — defaults apply. Environment overrides are applied last and
// always win over file values.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	env := ReadEnvOverrides()

	if path == "" {
		path = env.ConfigPath
	}

	if path == "" {
		var err error

		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}

	md, err := toml.DecodeFile(path, cfg)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("no config file, using defaults", slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	default:
		// Unknown keys are warned about, not fatal: a typo'd section
		// should not brick the CLI.
		for _, key := range md.Undecoded() {
			logger.Warn("unknown config key ignored",
				slog.String("path", path),
				slog.String("key", key.String()),
			)
		}
	}

	cfg.applyDefaults()

	if err := cfg.applyPathDefaults(); err != nil {
		return nil, err
	}

	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyPathDefaults fills the local state paths from the data dir.
func (c *Config) applyPathDefaults() error {
	if c.Store.TokensDir != "" && c.Store.LedgerPath != "" {
		return nil
	}

	dataDir, err := defaultDataDir()
	if err != nil {
		return err
	}

	if c.Store.TokensDir == "" {
		c.Store.TokensDir = filepath.Join(dataDir, "tokens")
	}

	if c.Store.LedgerPath == "" {
		c.Store.LedgerPath = filepath.Join(dataDir, "checks.db")
	}

	return nil
}

// applyEnv applies environment overrides on top of file values.
func (c *Config) applyEnv(env EnvOverrides) {
	if env.WalletKey != "" {
		c.Wallet.SecretKey = env.WalletKey
	}

	if env.TokensDir != "" {
		c.Store.TokensDir = env.TokensDir
	}
}
