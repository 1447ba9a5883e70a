package cache

import (
	"context"
	"time"

	"github.com/agentmem/agentmem/internal/remotecache"
)

// Tiered composes the required L1 Cache with an optional L2 RemoteCache,
// implementing the cache-aside promotion semantics of spec §4.3: an L1
// miss consults L2, and an L2 hit promotes into L1 with the original TTL
// clipped to the remaining time.
type Tiered struct {
	L1 *Cache
	L2 remotecache.RemoteCache
}

// NewTiered builds a Tiered cache. l2 may be nil when no RemoteCache is
// configured for the deployment.
func NewTiered(l1 *Cache, l2 remotecache.RemoteCache) *Tiered {
	return &Tiered{L1: l1, L2: l2}
}

// Get checks L1 first, then L2 on miss, promoting an L2 hit back into L1.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := t.L1.Get(key); ok {
		return v, true, nil
	}
	if t.L2 == nil {
		return nil, false, nil
	}
	v, remaining, ok, err := t.L2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	ttl := remaining
	if t.L1.cfg.DefaultTTL > 0 && ttl > t.L1.cfg.DefaultTTL {
		ttl = t.L1.cfg.DefaultTTL
	}
	t.L1.Set(key, v, LevelL2, ttl)
	return v, true, nil
}

// Set writes through to both tiers.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	t.L1.Set(key, value, LevelL1, ttl)
	if t.L2 != nil {
		return t.L2.Set(ctx, key, value, ttl)
	}
	return nil
}

// Invalidate removes key from both tiers.
func (t *Tiered) Invalidate(ctx context.Context, key string) error {
	t.L1.Invalidate(key)
	if t.L2 != nil {
		return t.L2.Delete(ctx, key)
	}
	return nil
}

// InvalidatePrefix removes every L1 key under prefix. L2 invalidation by
// prefix is deployment-specific (most RemoteCache backends, including
// Redis, have no native prefix-delete); callers that need L2 scope
// invalidation must track and delete specific keys.
func (t *Tiered) InvalidatePrefix(prefix string) int {
	return t.L1.InvalidatePrefix(prefix)
}
