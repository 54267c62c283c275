package conn

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tonimelisma/driveconn/internal/wallet"
)

// Retry policy for transient token resolution failures.
const (
	retryAttempts    = 2 // additional attempts after the first
	defaultRetryBase = 500 * time.Millisecond
)

// markerPrefix names the disposable probe folders so a leaked marker is
// recognizable in the user's Drive.
const markerPrefix = "driveconn-probe-"

// Wallet is the identity provider's token wallet, defined at the
// consumer per Go convention. The wallet package provides the real
// implementation.
type Wallet interface {
	AccessToken(ctx context.Context, userID string) (wallet.Token, error)
	HasLinkedAccount(ctx context.Context, userID string) (bool, error)
	Provider() string
}

// FallbackStore is the local token store consulted when the wallet
// yields nothing. Implementations return wallet.ErrNoToken when they
// hold nothing for the user.
type FallbackStore interface {
	Token(ctx context.Context, userID string) (wallet.Token, error)
}

// RemoteFactory builds an API client around a resolved token.
type RemoteFactory func(tok wallet.Token) Remote

// Recorder persists status check outcomes for later inspection.
type Recorder interface {
	RecordStatus(ctx context.Context, st Status, at time.Time) error
}

// Service resolves per-user access tokens, caches the derived client
// handles, and answers connection-health queries. One Service is shared
// process-wide; all methods are safe for concurrent use.
type Service struct {
	wallet   Wallet
	fallback FallbackStore // may be nil
	remote   RemoteFactory
	cache    *Cache
	recorder Recorder // may be nil
	logger   *slog.Logger

	// retryBase is the first backoff delay for transient failures.
	// Tests shrink it to keep retry timing measurable but fast.
	retryBase time.Duration

	// group deduplicates concurrent handle rebuilds for the same user.
	group singleflight.Group
}

// NewService creates the connection service. The cache is injected,
// not owned: callers decide its TTL and lifetime. fallback and recorder
// may be nil.
func NewService(
	w Wallet,
	fallback FallbackStore,
	remote RemoteFactory,
	cache *Cache,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	if w == nil {
		panic("conn: NewService requires a wallet")
	}

	if remote == nil {
		panic("conn: NewService requires a remote factory")
	}

	if cache == nil {
		cache = NewCache(DefaultTTL)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		wallet:    w,
		fallback:  fallback,
		remote:    remote,
		cache:     cache,
		recorder:  recorder,
		logger:    logger,
		retryBase: defaultRetryBase,
	}
}

// ResolveAccessToken walks the ordered fallback chain: the provider's
// wallet first, then the local store. Each step runs only if the prior
// one yielded nothing. No token is minted or refreshed here — refresh is
// the provider's job; this only retrieves what it currently holds.
//
// Failure modes: wallet.ErrNoAccount (never linked), wallet.ErrNoToken
// (linked but nothing usable), or a kind-tagged *wallet.Error when the
// wallet query itself failed.
func (s *Service) ResolveAccessToken(ctx context.Context, userID string) (wallet.Token, error) {
	tok, err := s.wallet.AccessToken(ctx, userID)
	if err == nil {
		return tok, nil
	}

	// Transport failures propagate as-is: they say nothing about whether
	// a token exists, and the caller's retry policy wants the kind.
	if !errors.Is(err, wallet.ErrNoToken) && !errors.Is(err, wallet.ErrNoAccount) {
		return wallet.Token{}, err
	}

	if s.fallback != nil {
		ftok, ferr := s.fallback.Token(ctx, userID)

		switch {
		case ferr == nil && ftok.Valid():
			s.logger.Debug("token resolved from local fallback store",
				slog.String("user_id", userID),
			)

			return ftok, nil
		case ferr != nil && !errors.Is(ferr, wallet.ErrNoToken):
			s.logger.Warn("fallback token store error",
				slog.String("user_id", userID),
				slog.String("error", ferr.Error()),
			)
		}
	}

	linked, lerr := s.wallet.HasLinkedAccount(ctx, userID)
	if lerr != nil {
		return wallet.Token{}, lerr
	}

	if linked {
		return wallet.Token{}, wallet.ErrNoToken
	}

	return wallet.Token{}, wallet.ErrNoAccount
}

// ClientHandle returns a cached client handle for the user, rebuilding
// it when missing or older than the cache TTL. Transient resolution
// failures are retried twice with exponential backoff; everything else
// fails immediately. Failures are never cached.
func (s *Service) ClientHandle(ctx context.Context, userID string) (*Handle, error) {
	if h, ok := s.cache.Get(userID); ok {
		return h, nil
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		return s.rebuildHandle(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Handle), nil
}

// rebuildHandle resolves a fresh token and replaces the cache entry.
// Runs inside the singleflight group, so at most one rebuild per user is
// in flight; the backoff delays only this call chain, never other users.
func (s *Service) rebuildHandle(ctx context.Context, userID string) (*Handle, error) {
	// Another caller may have finished a rebuild while we waited on the
	// flight group.
	if h, ok := s.cache.Get(userID); ok {
		return h, nil
	}

	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(s.retryBase))

	var (
		handle  *Handle
		attempt int
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		// A stale entry must not survive into the retry window.
		s.cache.Evict(userID)

		attempt++

		tok, rerr := s.ResolveAccessToken(ctx, userID)
		if rerr != nil {
			if wallet.IsTransient(rerr) {
				s.logger.Warn("transient token resolution failure",
					slog.String("user_id", userID),
					slog.Int("attempt", attempt),
					slog.String("error", rerr.Error()),
				)

				return retry.RetryableError(rerr)
			}

			return rerr
		}

		handle = s.cache.Put(Handle{
			UserID: userID,
			Token:  tok,
			Remote: s.remote(tok),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("client handle rebuilt",
		slog.String("user_id", userID),
		slog.Int("attempts", attempt),
	)

	return handle, nil
}

// Evict drops the cached handle for one user. Call on disconnect/logout.
func (s *Service) Evict(userID string) {
	s.cache.Evict(userID)
}

// EvictAll drops every cached handle.
func (s *Service) EvictAll() {
	s.cache.EvictAll()
}

// CheckConnection reports whether the user's token actually carries
// working write authority. It never returns an error: every failure
// collapses to false, classified only for logging.
func (s *Service) CheckConnection(ctx context.Context, userID string) bool {
	h, err := s.ClientHandle(ctx, userID)
	if err != nil {
		s.logger.Info("connection check failed before probe",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)

		return false
	}

	return s.probe(ctx, h)
}

// probe creates a uniquely named disposable marker folder and deletes it
// again. Both steps must succeed. A read-only listing call would prove
// nothing under the drive.file scope — it only surfaces files this app
// created — so a write probe is the one reliable authority check.
func (s *Service) probe(ctx context.Context, h *Handle) bool {
	name := markerPrefix + uuid.NewString()

	id, err := h.Remote.CreateFolder(ctx, name)
	if err != nil {
		s.logProbeFailure(h.UserID, "create", err)

		return false
	}

	if err := h.Remote.DeleteFile(ctx, id); err != nil {
		// The marker stays behind in the user's Drive; observable in
		// logs, never fatal to the caller.
		s.logger.Warn("probe marker cleanup failed, marker left behind",
			slog.String("user_id", h.UserID),
			slog.String("marker", name),
			slog.String("marker_id", id),
		)
		s.logProbeFailure(h.UserID, "delete", err)

		return false
	}

	return true
}

// authHints flag probe failures that look token-related. Logging only —
// the boolean contract of CheckConnection does not change.
var authHints = []string{"auth", "token", "credentials", "permission"}

func (s *Service) logProbeFailure(userID, step string, err error) {
	msg := strings.ToLower(err.Error())

	authRelated := false

	for _, hint := range authHints {
		if strings.Contains(msg, hint) {
			authRelated = true

			break
		}
	}

	s.logger.Warn("connection probe failed",
		slog.String("user_id", userID),
		slog.String("step", step),
		slog.Bool("auth_related", authRelated),
		slog.String("error", err.Error()),
	)
}

// ConnectionStatus reports the full connection state for a user. It
// never fails: every error collapses into the report fields so callers
// always get something renderable. The account-linkage lookup and the
// token resolution are two independent queries run in parallel — the
// "silently disconnected" state is exactly their disagreement.
func (s *Service) ConnectionStatus(ctx context.Context, userID string) Status {
	st := Status{
		UserID:   userID,
		Provider: s.wallet.Provider(),
	}

	var (
		linked bool
		tok    wallet.Token
		tokErr error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		has, err := s.wallet.HasLinkedAccount(gctx, userID)
		if err != nil {
			s.logger.Warn("account linkage lookup failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)

			return nil
		}

		linked = has

		return nil
	})

	g.Go(func() error {
		t, err := s.ResolveAccessToken(gctx, userID)
		if err != nil {
			tokErr = err

			return nil
		}

		tok = t

		return nil
	})

	// Both goroutines swallow their errors into the status fields.
	_ = g.Wait()

	st.HasProviderAccount = linked
	st.HasToken = tokErr == nil && tok.Value != ""

	// "Never connected" is a state, not an error message.
	if tokErr != nil && !errors.Is(tokErr, wallet.ErrNoAccount) {
		st.TokenError = tokErr.Error()
	}

	st.NeedsReconnect = st.HasProviderAccount && !st.HasToken

	// A present token can still be revoked out-of-band; only the probe
	// distinguishes "token held" from "token honored".
	if st.HasToken {
		st.Connected = s.CheckConnection(ctx, userID)
	}

	s.record(ctx, st)

	return st
}

// record persists the status outcome when a recorder is wired. Failures
// are logged and dropped — history is best-effort.
func (s *Service) record(ctx context.Context, st Status) {
	if s.recorder == nil {
		return
	}

	if err := s.recorder.RecordStatus(ctx, st, time.Now().UTC()); err != nil {
		s.logger.Warn("recording status check failed",
			slog.String("user_id", st.UserID),
			slog.String("error", err.Error()),
		)
	}
}
