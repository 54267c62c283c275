package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/driveconn/internal/config"
	"github.com/tonimelisma/driveconn/internal/conn"
	"github.com/tonimelisma/driveconn/internal/drive"
	"github.com/tonimelisma/driveconn/internal/ledger"
	"github.com/tonimelisma/driveconn/internal/tokenstore"
	"github.com/tonimelisma/driveconn/internal/wallet"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// errCheckFailed signals a failed connection check; main maps it to
// exit code 1 without the error banner.
var errCheckFailed = errors.New("connection check failed")

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "driveconn",
		Short:   "Google Drive connection manager",
		Long:    "Manage and verify per-user Google Drive connections: token resolution, client caching, and write-authority probes.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newConnectCmd())
	cmd.AddCommand(newDisconnectCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newMonitorCmd())

	return cmd
}

// app bundles the wired collaborators commands need.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   *conn.Cache
	store   *tokenstore.Store
	ledger  *ledger.Store
	service *conn.Service
}

// newApp loads configuration and wires the service graph. Every command
// goes through here, so the wiring stays in one place.
func newApp() (*app, error) {
	logger := buildLogger(nil)

	cfg, err := config.LoadOrDefault(flagConfigPath, logger)
	if err != nil {
		return nil, err
	}

	// Re-level the logger now that the config's baseline is known.
	logger = buildLogger(cfg)

	httpClient := &http.Client{Timeout: cfg.DriveTimeout()}

	walletClient := wallet.NewClient(
		cfg.Wallet.BaseURL,
		cfg.Wallet.SecretKey,
		cfg.Wallet.Provider,
		httpClient,
		logger,
	)

	store := tokenstore.NewStore(cfg.Store.TokensDir, logger)

	ledgerStore, err := ledger.Open(cfg.Store.LedgerPath, logger)
	if err != nil {
		return nil, err
	}

	cache := conn.NewCache(cfg.CacheTTL())

	remote := func(tok wallet.Token) conn.Remote {
		return driveRemote{
			c: drive.NewClient(cfg.Drive.BaseURL, httpClient, drive.StaticToken(tok.Value), logger),
		}
	}

	service := conn.NewService(walletClient, store, remote, cache, ledgerStore, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		cache:   cache,
		store:   store,
		ledger:  ledgerStore,
		service: service,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.ledger.Close()
}

// driveRemote adapts the Drive client to the probe surface the
// connection service expects.
type driveRemote struct {
	c *drive.Client
}

func (r driveRemote) CreateFolder(ctx context.Context, name string) (string, error) {
	f, err := r.c.CreateFolder(ctx, name, "")
	if err != nil {
		return "", err
	}

	return f.ID, nil
}

func (r driveRemote) DeleteFile(ctx context.Context, id string) error {
	return r.c.DeleteFile(ctx, id)
}

// buildLogger creates an slog.Logger from config baseline and CLI flag
// overrides. JSON output is used when requested or when stderr is not a
// terminal, so piped logs stay machine-readable.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if flagJSON || !isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
