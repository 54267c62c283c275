package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/driveconn/internal/tokenstore"
)

var flagMonitorUsers []string

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Continuously watch connection health for one or more users",
		Long: `Poll the connection state of the given users on an interval and log
state transitions. Local token files are watched so that a token written or
removed outside this process invalidates the cached client immediately
instead of waiting out the cache TTL. Runs until interrupted.`,
		RunE: runMonitor,
	}

	cmd.Flags().StringArrayVar(&flagMonitorUsers, "user", nil, "user to monitor (repeatable)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The watcher needs the directory to exist before it can subscribe.
	if err := os.MkdirAll(a.store.Dir(), tokenstore.DirPerms); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	watcher, err := tokenstore.NewWatcher(a.store, a.logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	go func() {
		werr := watcher.Watch(ctx, func(userID string) {
			a.logger.Info("local token changed, evicting cached client", slog.String("user_id", userID))
			a.service.Evict(userID)
		})
		if werr != nil {
			a.logger.Error("token watcher stopped", slog.String("error", werr.Error()))
		}
	}()

	interval := a.cfg.MonitorInterval()
	a.logger.Info("monitoring connections",
		slog.Int("users", len(flagMonitorUsers)),
		slog.Duration("interval", interval))

	lastState := make(map[string]string, len(flagMonitorUsers))
	runMonitorPass(ctx, a, lastState)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			statusf("Monitor stopped\n")

			return nil
		case <-ticker.C:
			runMonitorPass(ctx, a, lastState)
		}
	}
}

// runMonitorPass checks every monitored user once and logs transitions.
func runMonitorPass(ctx context.Context, a *app, lastState map[string]string) {
	for _, userID := range flagMonitorUsers {
		st := a.service.ConnectionStatus(ctx, userID)
		state := st.State()

		prev, seen := lastState[userID]
		lastState[userID] = state

		switch {
		case !seen:
			a.logger.Info("initial connection state",
				slog.String("user_id", userID),
				slog.String("state", state))
		case prev != state:
			a.logger.Warn("connection state changed",
				slog.String("user_id", userID),
				slog.String("from", prev),
				slog.String("to", state))
		default:
			a.logger.Debug("connection state unchanged",
				slog.String("user_id", userID),
				slog.String("state", state))
		}
	}
}
