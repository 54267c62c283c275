package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "DRIVECONN_CONFIG"
	EnvWalletKey = "DRIVECONN_WALLET_KEY"
	EnvTokensDir = "DRIVECONN_TOKENS_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DRIVECONN_CONFIG: override config file path
	WalletKey  string // DRIVECONN_WALLET_KEY: wallet API secret key
	TokensDir  string // DRIVECONN_TOKENS_DIR: token store directory
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify a Config; the loader applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		WalletKey:  os.Getenv(EnvWalletKey),
		TokensDir:  os.Getenv(EnvTokensDir),
	}
}
