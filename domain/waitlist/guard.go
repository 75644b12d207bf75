package waitlist

//go:generate mockgen -source=guard.go -destination=mock_guard.go -package=waitlist

import (
	"context"
	"sync"
	"time"
)

const guardKeyPrefix = "waitlist:recent:"

// SubmissionGuard collapses the racing transports of one signup into a single row.
type SubmissionGuard interface {
	// Claim returns true for the first caller of key within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops a claim whose signup was never stored.
	Release(ctx context.Context, key string) error
}

// ClaimStore is satisfied by the Redis cache.
type ClaimStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

func guardKey(email string) string {
	return guardKeyPrefix + NormalizeEmail(email)
}

type cacheGuard struct {
	store ClaimStore
}

// NewCacheGuard claims keys with SETNX so every replica shares the window.
func NewCacheGuard(store ClaimStore) SubmissionGuard {
	return &cacheGuard{store: store}
}

func (g *cacheGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.store.SetIfAbsent(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl)
}

func (g *cacheGuard) Release(ctx context.Context, key string) error {
	return g.store.Delete(ctx, key)
}

type memoryGuard struct {
	mu      sync.Mutex
	claims  map[string]time.Time
	now     func() time.Time
	lastGC  time.Time
	gcEvery time.Duration
}

// NewMemoryGuard is used when no cache is configured. Claims are local to the process.
func NewMemoryGuard() SubmissionGuard {
	return newMemoryGuard(time.Now)
}

func newMemoryGuard(now func() time.Time) *memoryGuard {
	return &memoryGuard{
		claims:  make(map[string]time.Time),
		now:     now,
		gcEvery: time.Minute,
	}
}

func (g *memoryGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.lastGC) >= g.gcEvery {
		for k, expires := range g.claims {
			if !now.Before(expires) {
				delete(g.claims, k)
			}
		}
		g.lastGC = now
	}

	if expires, ok := g.claims[key]; ok && now.Before(expires) {
		return false, nil
	}

	g.claims[key] = now.Add(ttl)
	return true, nil
}

func (g *memoryGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claims)
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, key)
	return nil
}
