package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/driveconn/internal/wallet"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	return NewStore(filepath.Join(t.TempDir(), "tokens"), nil)
}

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)
	meta := map[string]string{"email": "user@example.com"}

	require.NoError(t, s.Save("user-1", testToken(), meta))

	tok, gotMeta, err := s.Load("user-1")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "refresh-456", tok.RefreshToken)
	assert.Equal(t, meta, gotMeta)
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)

	tok, meta, err := s.Load("nobody")
	require.NoError(t, err)
	assert.Nil(t, tok)
	assert.Nil(t, meta)
}

func TestLoadMissingTokenField(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, os.MkdirAll(s.Dir(), DirPerms))
	require.NoError(t, os.WriteFile(s.PathFor("user-1"), []byte(`{"meta":{}}`), FilePerms))

	_, _, err := s.Load("user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token field")
}

func TestSavePermissions(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("user-1", testToken(), nil))

	info, err := os.Stat(s.PathFor("user-1"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	dirInfo, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(DirPerms), dirInfo.Mode().Perm())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("user-1", testToken(), nil))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user-1.json", entries[0].Name())
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("user-1", testToken(), nil))

	newer := testToken()
	newer.AccessToken = "access-789"
	require.NoError(t, s.Save("user-1", newer, nil))

	tok, _, err := s.Load("user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-789", tok.AccessToken)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("user-1", testToken(), nil))
	require.NoError(t, s.Delete("user-1"))

	tok, _, err := s.Load("user-1")
	require.NoError(t, err)
	assert.Nil(t, tok)

	// Deleting again is a no-op.
	require.NoError(t, s.Delete("user-1"))
}

func TestPathForEscapesUserID(t *testing.T) {
	s := NewStore("/tokens", nil)

	path := s.PathFor("auth0|user/123")
	assert.Equal(t, "/tokens", filepath.Dir(path))
	assert.NotContains(t, filepath.Base(path), "/")
	assert.NotContains(t, filepath.Base(path), "|")
}

func TestUserIDFromPathInvertsPathFor(t *testing.T) {
	s := NewStore("/tokens", nil)

	ids := []string{
		"user-1",
		"auth0|5f3c",
		"user/with/slashes",
		"user with spaces",
		"uéser", // precomposed é
	}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			got, ok := UserIDFromPath(s.PathFor(id))
			require.True(t, ok)
			assert.Equal(t, id, got)
		})
	}
}

// Decomposed and precomposed spellings of the same id map to one file.
func TestPathForNormalizesUnicode(t *testing.T) {
	s := NewStore("/tokens", nil)

	precomposed := "usér"          // é as one rune
	decomposed := "us" + "é" + "r" // e plus combining accent

	assert.Equal(t, s.PathFor(precomposed), s.PathFor(decomposed))
}

func TestUserIDFromPathRejectsNonTokenFiles(t *testing.T) {
	paths := []string{
		"/tokens/.token-12345.tmp",
		"/tokens/.hidden.json",
		"/tokens/readme.txt",
		"/tokens/notes",
	}

	for _, p := range paths {
		_, ok := UserIDFromPath(p)
		assert.False(t, ok, "path %s", p)
	}
}

func TestTokenFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Nothing stored.
	_, err := s.Token(ctx, "user-1")
	assert.ErrorIs(t, err, wallet.ErrNoToken)

	// Valid stored token.
	require.NoError(t, s.Save("user-1", testToken(), nil))

	tok, err := s.Token(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.Value)
	assert.False(t, tok.Expiry.IsZero())
}

// A stored token past its expiry is treated as absent, not returned for
// the remote to reject.
func TestTokenExpired(t *testing.T) {
	s := newTestStore(t)

	expired := testToken()
	expired.Expiry = time.Now().Add(-time.Hour)
	require.NoError(t, s.Save("user-1", expired, nil))

	_, err := s.Token(context.Background(), "user-1")
	assert.ErrorIs(t, err, wallet.ErrNoToken)
}
