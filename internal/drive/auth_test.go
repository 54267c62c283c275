package drive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbackRequest(t *testing.T, params url.Values) (*httptest.ResponseRecorder, chan callbackResult) {
	t.Helper()

	resultCh := make(chan callbackResult, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?"+params.Encode(), nil)

	handleOAuthCallback(rec, req, "expected-state", resultCh)

	return rec, resultCh
}

func TestHandleOAuthCallbackSuccess(t *testing.T) {
	rec, resultCh := callbackRequest(t, url.Values{
		"state": {"expected-state"},
		"code":  {"auth-code-123"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication successful")

	result := <-resultCh
	require.NoError(t, result.err)
	assert.Equal(t, "auth-code-123", result.code)
}

func TestHandleOAuthCallbackStateMismatch(t *testing.T) {
	rec, resultCh := callbackRequest(t, url.Values{
		"state": {"attacker-state"},
		"code":  {"auth-code-123"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "state mismatch")
}

func TestHandleOAuthCallbackErrorParam(t *testing.T) {
	rec, resultCh := callbackRequest(t, url.Values{
		"state":             {"expected-state"},
		"error":             {"access_denied"},
		"error_description": {"User denied access"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "access_denied")
	assert.Contains(t, result.err.Error(), "User denied access")
}

func TestHandleOAuthCallbackMissingCode(t *testing.T) {
	rec, resultCh := callbackRequest(t, url.Values{
		"state": {"expected-state"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "missing authorization code")
}

func TestWaitForCallbackContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resultCh := make(chan callbackResult, 1)

	_, err := waitForCallback(ctx, resultCh)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForCallbackDeliversResult(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	resultCh <- callbackResult{code: "the-code"}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, err := waitForCallback(ctx, resultCh)
	require.NoError(t, err)
	assert.Equal(t, "the-code", code)
}

func TestGenerateState(t *testing.T) {
	a, err := generateState()
	require.NoError(t, err)
	assert.Len(t, a, stateTokenBytes*2)

	b, err := generateState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
