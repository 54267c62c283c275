package drive

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusCreated, nil},
		{http.StatusNoContent, nil},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusServiceUnavailable, ErrServerError},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, classifyStatus(tc.code), "status %d", tc.code)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []int{
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
	for _, code := range retryable {
		assert.True(t, isRetryable(code), "status %d", code)
	}

	// 403 may be a rate limit but retrying it would mask real permission
	// failures.
	notRetryable := []int{
		http.StatusOK,
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
	}
	for _, code := range notRetryable {
		assert.False(t, isRetryable(code), "status %d", code)
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	err := &APIError{StatusCode: 401, Message: "Invalid Credentials", Err: ErrUnauthorized}

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid Credentials")
}
