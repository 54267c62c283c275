package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, "secret-key", "google", srv.Client(), nil)
}

func TestAccessTokenSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/users/user-1/oauth_access_tokens/google", r.URL.Path)

		w.Write([]byte(`[{"token":"tok-1","provider":"google"}]`))
	})

	tok, err := c.AccessToken(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Value)
}

func TestAccessTokenNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.AccessToken(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAccessTokenEmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.AccessToken(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoToken)
}

// An unrecognized response shape is treated as no token, not a failure.
func TestAccessTokenUnknownShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"tokens":["tok-1"]}`))
	})

	_, err := c.AccessToken(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAccessTokenStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind Kind
	}{
		{"throttled", http.StatusTooManyRequests, KindRateLimit},
		{"unauthorized", http.StatusUnauthorized, KindAuth},
		{"forbidden", http.StatusForbidden, KindAuth},
		{"server error", http.StatusInternalServerError, KindServer},
		{"bad gateway", http.StatusBadGateway, KindServer},
		{"unexpected status", http.StatusTeapot, KindInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			})

			_, err := c.AccessToken(context.Background(), "user-1")
			require.Error(t, err)

			var werr *Error
			require.ErrorAs(t, err, &werr)
			assert.Equal(t, tc.wantKind, werr.Kind)
		})
	}
}

func TestAccessTokenNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // closed before use: every request fails at dial time

	c := NewClient(srv.URL, "secret-key", "google", nil, nil)

	_, err := c.AccessToken(context.Background(), "user-1")
	require.Error(t, err)

	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, KindNetwork, werr.Kind)
	assert.True(t, IsTransient(err))
}

func TestAccessTokenEscapesUserID(t *testing.T) {
	var gotPath string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()

		w.Write([]byte(`[{"token":"tok-1"}]`))
	})

	_, err := c.AccessToken(context.Background(), "user/../1")
	require.NoError(t, err)
	assert.Equal(t, "/v1/users/user%2F..%2F1/oauth_access_tokens/google", gotPath)
}

func TestHasLinkedAccount(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"linked", http.StatusOK, `[{"provider":"google"}]`, true},
		{"linked via envelope", http.StatusOK, `{"data":[{"provider":"google"}]}`, true},
		{"entry without provider counts", http.StatusOK, `[{}]`, true},
		{"different provider only", http.StatusOK, `[{"provider":"github"}]`, false},
		{"empty list", http.StatusOK, `[]`, false},
		{"not found", http.StatusNotFound, ``, false},
		{"unknown shape", http.StatusOK, `{"accounts":1}`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "google", r.URL.Query().Get("provider"))

				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			linked, err := c.HasLinkedAccount(context.Background(), "user-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, linked)
		})
	}
}

func TestHasLinkedAccountServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.HasLinkedAccount(context.Background(), "user-1")
	require.Error(t, err)

	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, KindServer, werr.Kind)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("http://example.test", "key", "", nil, nil)
	assert.Equal(t, DefaultProvider, c.Provider())
	assert.NotNil(t, c.httpClient)
	assert.NotNil(t, c.logger)
}
