// Package wallet queries the identity provider's token wallet for
// third-party OAuth access tokens and account-linking records.
package wallet

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for token resolution outcomes.
// Use errors.Is(err, wallet.ErrNoToken) to check.
var (
	// ErrNoAccount means the user never linked a provider account.
	ErrNoAccount = errors.New("wallet: no provider account linked")

	// ErrNoToken means an account may be linked but the wallet currently
	// holds no usable token for it.
	ErrNoToken = errors.New("wallet: no token available")
)

// Kind classifies a wallet failure at the point the transport raises it,
// so retry decisions do not depend on error message wording.
type Kind int

// Error kinds, assigned by the transport layer.
const (
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindRateLimit
	KindAuth
	KindServer
	KindInvalid
)

// kindNames maps kinds to strings for logging.
var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindNetwork:   "network",
	KindTimeout:   "timeout",
	KindRateLimit: "rate_limit",
	KindAuth:      "auth",
	KindServer:    "server",
	KindInvalid:   "invalid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Error is a wallet query failure carrying a transport-assigned kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("wallet: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// transientKinds are the kinds worth retrying with backoff.
var transientKinds = map[Kind]bool{
	KindNetwork:   true,
	KindTimeout:   true,
	KindRateLimit: true,
	KindServer:    true,
}

// transientSubstrings is the legacy message heuristic, kept as a fallback
// for errors that did not pass through this package's transport and so
// carry no kind.
var transientSubstrings = []string{
	"network",
	"timeout",
	"econnreset",
	"rate limit",
}

// IsTransient reports whether err is worth retrying. Typed wallet errors
// are decided by their kind; anything else falls back to a substring
// match on the message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var werr *Error
	if errors.As(err, &werr) {
		return transientKinds[werr.Kind]
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}
