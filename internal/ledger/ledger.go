// Package ledger persists connection check outcomes to an embedded
// SQLite database so past status transitions can be inspected after the
// fact. History is observability, not state: the connection service
// works fine without it.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/tonimelisma/driveconn/internal/conn"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultListLimit bounds ListRecent when callers pass no limit.
const DefaultListLimit = 20

// Check is one recorded status outcome.
type Check struct {
	ID                 int64
	UserID             string
	Provider           string
	HasToken           bool
	HasProviderAccount bool
	NeedsReconnect     bool
	Connected          bool
	TokenError         string
	CheckedAt          time.Time
}

// State collapses the recorded booleans the same way a live status does.
func (c Check) State() string {
	st := conn.Status{
		HasToken:           c.HasToken,
		HasProviderAccount: c.HasProviderAccount,
		NeedsReconnect:     c.NeedsReconnect,
		Connected:          c.Connected,
	}

	return st.State()
}

// Store records and lists checks. Single writer; safe for concurrent use
// through database/sql's connection pooling.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	insertStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// Open opens (or creates) the ledger database at dbPath and applies
// pending migrations. Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening check ledger", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening sqlite: %w", err)
	}

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()

		return nil, fmt.Errorf("ledger: setting pragmas: %w", err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	s := &Store{db: db, logger: logger}
	if err := s.prepare(ctx); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// Strip the "migrations/" prefix so goose sees files at the FS root.
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ledger: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("ledger: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("ledger: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// prepare builds the repeated statements.
func (s *Store) prepare(ctx context.Context) error {
	var err error

	s.insertStmt, err = s.db.PrepareContext(ctx, `
		INSERT INTO checks (
			user_id, provider, has_token, has_provider_account,
			needs_reconnect, connected, token_error, checked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ledger: preparing insert: %w", err)
	}

	s.listStmt, err = s.db.PrepareContext(ctx, `
		SELECT id, user_id, provider, has_token, has_provider_account,
		       needs_reconnect, connected, token_error, checked_at
		FROM checks
		WHERE user_id = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT ?`)
	if err != nil {
		return fmt.Errorf("ledger: preparing list: %w", err)
	}

	return nil
}

// RecordStatus appends one status outcome. Implements conn.Recorder.
func (s *Store) RecordStatus(ctx context.Context, st conn.Status, at time.Time) error {
	_, err := s.insertStmt.ExecContext(ctx,
		st.UserID,
		st.Provider,
		st.HasToken,
		st.HasProviderAccount,
		st.NeedsReconnect,
		st.Connected,
		st.TokenError,
		at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("ledger: recording check: %w", err)
	}

	return nil
}

// ListRecent returns the newest checks for a user, most recent first.
// A non-positive limit selects DefaultListLimit.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]Check, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.listStmt.QueryContext(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: listing checks: %w", err)
	}
	defer rows.Close()

	var checks []Check

	for rows.Next() {
		var (
			c       Check
			checked int64
		)

		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Provider, &c.HasToken, &c.HasProviderAccount,
			&c.NeedsReconnect, &c.Connected, &c.TokenError, &checked,
		); err != nil {
			return nil, fmt.Errorf("ledger: scanning check row: %w", err)
		}

		c.CheckedAt = time.Unix(checked, 0).UTC()
		checks = append(checks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating check rows: %w", err)
	}

	return checks, nil
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}

	if s.listStmt != nil {
		s.listStmt.Close()
	}

	return s.db.Close()
}
