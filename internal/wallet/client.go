package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// DefaultProvider is the provider key used when none is configured.
const DefaultProvider = "google"

// Client queries the identity provider's wallet API. It owns no caching
// or retry — callers decide both.
type Client struct {
	baseURL    string
	secretKey  string
	provider   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a wallet client. baseURL is the provider's API root
// (no trailing slash). secretKey authenticates this service to the
// provider. A nil httpClient or logger falls back to defaults.
func NewClient(baseURL, secretKey, provider string, httpClient *http.Client, logger *slog.Logger) *Client {
	if provider == "" {
		provider = DefaultProvider
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		provider:   provider,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Provider returns the provider key this client queries for.
func (c *Client) Provider() string {
	return c.provider
}

// AccessToken fetches the user's current provider token from the wallet.
// It returns ErrNoToken when the wallet answers but holds nothing usable,
// and a kind-tagged *Error when the query itself fails. Tokens are never
// refreshed here — the provider manages refresh on its side.
func (c *Client) AccessToken(ctx context.Context, userID string) (Token, error) {
	path := fmt.Sprintf("/v1/users/%s/oauth_access_tokens/%s",
		url.PathEscape(userID), url.PathEscape(c.provider))

	status, body, err := c.get(ctx, path, "fetching access token")
	if err != nil {
		return Token{}, err
	}

	if status == http.StatusNotFound {
		c.logger.Debug("wallet has no token record",
			slog.String("user_id", userID),
			slog.String("provider", c.provider),
		)

		return Token{}, ErrNoToken
	}

	entries, respShape := decodeEntries(body)

	c.logger.Debug("wallet token response decoded",
		slog.String("user_id", userID),
		slog.String("shape", respShape.String()),
		slog.Int("entries", len(entries)),
	)

	tok, ok := firstToken(entries, c.provider)
	if !ok {
		return Token{}, ErrNoToken
	}

	return tok, nil
}

// HasLinkedAccount reports whether the user has ever linked a provider
// account, independent of whether a usable token exists right now.
func (c *Client) HasLinkedAccount(ctx context.Context, userID string) (bool, error) {
	path := fmt.Sprintf("/v1/users/%s/external_accounts?provider=%s",
		url.PathEscape(userID), url.QueryEscape(c.provider))

	status, body, err := c.get(ctx, path, "fetching linked accounts")
	if err != nil {
		return false, err
	}

	if status == http.StatusNotFound {
		return false, nil
	}

	// The linking endpoint shares the wallet's loose response encoding.
	entries, _ := decodeEntries(body)
	for _, e := range entries {
		if e.Provider == "" || e.Provider == c.provider {
			return true, nil
		}
	}

	return false, nil
}

// get executes one wallet API request and classifies failures with a
// Kind at the point they surface. 404 is returned to the caller — its
// meaning differs per endpoint.
func (c *Client) get(ctx context.Context, path, op string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, &Error{Kind: KindInvalid, Op: op, Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := KindNetwork

		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			kind = KindTimeout
		}

		return 0, nil, &Error{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &Error{Kind: KindNetwork, Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, nil, &Error{
			Kind: KindRateLimit,
			Op:   op,
			Err:  fmt.Errorf("HTTP %d: %s", resp.StatusCode, body),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, nil, &Error{
			Kind: KindAuth,
			Op:   op,
			Err:  fmt.Errorf("HTTP %d: %s", resp.StatusCode, body),
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return 0, nil, &Error{
			Kind: KindServer,
			Op:   op,
			Err:  fmt.Errorf("HTTP %d: %s", resp.StatusCode, body),
		}
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound:
		return 0, nil, &Error{
			Kind: KindInvalid,
			Op:   op,
			Err:  fmt.Errorf("unexpected HTTP %d: %s", resp.StatusCode, body),
		}
	}

	return resp.StatusCode, body, nil
}
