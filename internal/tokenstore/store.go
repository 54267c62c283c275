// Package tokenstore is the local fallback token store: one JSON file
// per user under a tokens directory, written atomically with owner-only
// permissions. It backs the resolution chain when the provider's wallet
// yields nothing, and feeds the watcher that evicts cached handles on
// external changes.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/driveconn/internal/wallet"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the tokens directory.
const DirPerms = 0o700

// fileSuffix is the extension of token files.
const fileSuffix = ".json"

// tmpPrefix marks in-flight atomic writes; the watcher ignores these.
const tmpPrefix = ".token-"

// File is the on-disk format for token files. Includes the OAuth token
// and optional metadata (account email, display name) cached from API
// responses.
type File struct {
	Token *oauth2.Token     `json:"token"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Store reads and writes per-user token files under a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. The directory is created on
// first Save, not here.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{dir: dir, logger: logger}
}

// Dir returns the tokens directory.
func (s *Store) Dir() string {
	return s.dir
}

// PathFor returns the token file path for a user id. Ids are
// NFC-normalized and path-escaped so any opaque provider id is safe as
// a file name, and equivalent unicode spellings map to the same file.
func (s *Store) PathFor(userID string) string {
	name := url.PathEscape(norm.NFC.String(userID))

	return filepath.Join(s.dir, name+fileSuffix)
}

// UserIDFromPath inverts PathFor, recovering the user id from a token
// file path. Returns false for paths that are not token files (temp
// files, dotfiles, foreign extensions).
func UserIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileSuffix) {
		return "", false
	}

	escaped := strings.TrimSuffix(base, fileSuffix)

	userID, err := url.PathUnescape(escaped)
	if err != nil {
		return "", false
	}

	return userID, true
}

// Load reads a user's saved token file. Returns (nil, nil, nil) if no
// file exists.
func (s *Store) Load(userID string) (*oauth2.Token, map[string]string, error) {
	path := s.PathFor(userID)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, nil, fmt.Errorf("tokenstore: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, nil, fmt.Errorf("tokenstore: decoding %s: %w", path, err)
	}

	if tf.Token == nil {
		return nil, nil, fmt.Errorf("tokenstore: %s missing token field (reconnect required)", path)
	}

	return tf.Token, tf.Meta, nil
}

// Save writes a user's token file atomically (write-to-temp + rename)
// with 0600 permissions. Never logs token values.
func (s *Store) Save(userID string, tok *oauth2.Token, meta map[string]string) error {
	tf := File{Token: tok, Meta: meta}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding: %w", err)
	}

	if mkErr := os.MkdirAll(s.dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenstore: creating directory %s: %w", s.dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(s.dir, tmpPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("tokenstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()

		return fmt.Errorf("tokenstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("tokenstore: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between
	// close and rename cannot leave an empty token file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return fmt.Errorf("tokenstore: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.PathFor(userID)); err != nil {
		return fmt.Errorf("tokenstore: renaming: %w", err)
	}

	success = true

	s.logger.Debug("token saved", slog.String("user_id", userID))

	return nil
}

// Delete removes a user's token file. Returns nil if no file exists
// (already disconnected).
func (s *Store) Delete(userID string) error {
	path := s.PathFor(userID)

	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no token file to remove", slog.String("user_id", userID))

		return nil
	}

	if err != nil {
		return fmt.Errorf("tokenstore: removing %s: %w", path, err)
	}

	s.logger.Info("removed token file", slog.String("user_id", userID))

	return nil
}

// Token implements the resolution chain's local fallback step: it
// returns the stored token when one exists and has not expired, and
// wallet.ErrNoToken otherwise. An expired stored token counts as absent
// — refresh is the provider's job, never done here.
func (s *Store) Token(_ context.Context, userID string) (wallet.Token, error) {
	tok, _, err := s.Load(userID)
	if err != nil {
		return wallet.Token{}, err
	}

	if tok == nil || !tok.Valid() {
		return wallet.Token{}, wallet.ErrNoToken
	}

	return wallet.Token{Value: tok.AccessToken, Expiry: tok.Expiry}, nil
}
