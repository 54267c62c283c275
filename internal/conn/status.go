// Package conn implements the provider-token client cache and the
// connection-status state machine for a user's Google Drive link. It
// resolves access tokens through an ordered fallback chain (wallet, then
// local store), caches the constructed API client per user with TTL
// staleness, and verifies real write authority with a disposable-marker
// probe.
package conn

// Status is the connection report rendered to callers. UI guidance
// branches on the four combinations of account/token/probe, so the
// derived fields must stay exact.
type Status struct {
	UserID             string `json:"user_id"`
	Provider           string `json:"provider"`
	HasToken           bool   `json:"has_token"`
	HasProviderAccount bool   `json:"has_provider_account"`
	NeedsReconnect     bool   `json:"needs_reconnect"`
	Connected          bool   `json:"connected"`
	TokenError         string `json:"token_error,omitempty"`
}

// Connection state names, one per renderable outcome.
const (
	StateNotConnected   = "not_connected"
	StateNeedsReconnect = "needs_reconnect"
	StateTokenRejected  = "token_rejected"
	StateConnected      = "connected"
)

// State collapses the status into one of the four connection states:
// no account, account without a usable token (silently disconnected),
// token present but rejected by the remote service, or fully connected.
func (s Status) State() string {
	switch {
	case s.Connected:
		return StateConnected
	case s.NeedsReconnect:
		return StateNeedsReconnect
	case s.HasToken:
		return StateTokenRejected
	default:
		return StateNotConnected
	}
}
