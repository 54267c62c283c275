package conn

import (
	"context"
	"sync"
	"time"

	"github.com/tonimelisma/driveconn/internal/wallet"
)

// DefaultTTL is how long a cached client handle stays usable without
// revalidation.
const DefaultTTL = 15 * time.Minute

// Remote is the constructed API client bound to a resolved token. The
// drive package provides the real implementation; tests substitute fakes.
type Remote interface {
	CreateFolder(ctx context.Context, name string) (id string, err error)
	DeleteFile(ctx context.Context, id string) error
}

// Handle pairs a user with a remote client built from their current
// token. Handles are immutable values: a rebuild replaces the whole
// cache entry, never mutates one in place, so concurrent last-write-wins
// races on the cache are safe without a lock around callers.
type Handle struct {
	UserID    string
	Token     wallet.Token
	Remote    Remote
	FetchedAt time.Time
}

// Cache holds client handles keyed by user id with TTL staleness. It is
// constructed and owned by the caller — nothing here is process-global —
// so tests control both the clock and the lifetime. Contents do not
// survive a process restart; handles are rebuilt from the provider on
// next use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Handle
	ttl     time.Duration

	// now is the clock used for stamping and staleness. Tests override it.
	now func() time.Time
}

// NewCache creates a handle cache. A non-positive ttl selects DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		entries: make(map[string]*Handle),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached handle for userID if it is younger than the
// TTL. Stale entries are dropped on read — a handle must never be used
// beyond its TTL without revalidation.
func (c *Cache) Get(userID string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.entries[userID]
	if !ok {
		return nil, false
	}

	if c.now().Sub(h.FetchedAt) >= c.ttl {
		delete(c.entries, userID)

		return nil, false
	}

	return h, true
}

// Put stores a freshly built handle, replacing any prior entry for the
// user wholesale. The cache stamps FetchedAt itself and returns the
// stored handle.
func (c *Cache) Put(h Handle) *Handle {
	h.FetchedAt = c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[h.UserID] = &h

	return &h
}

// Evict removes the handle for one user. Must be called on explicit
// disconnect or logout.
func (c *Cache) Evict(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userID)
}

// EvictAll clears every cached handle.
func (c *Cache) EvictAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Handle)
}

// Len returns the number of cached handles, stale or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
