// Package cache implements the L1 in-process CacheLayer (spec §4.3): an
// LRU/TTL hybrid with opportunistic expiry and byte-size accounting,
// guarded by a single mutex the way the teacher's event bus guards its
// handler list.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Level tags which tier an entry came from, per spec §4.3 ("values are
// byte blobs with level tag (L1/L2)").
type Level int

const (
	LevelL1 Level = iota
	LevelL2
)

// Config enumerates the L1 cache's tunables (spec §4.3).
type Config struct {
	MaxEntries    int
	MaxSizeBytes  int64
	DefaultTTL    time.Duration
	EnableStats   bool
}

// Stats mirrors the spec §4.3 counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	Invalidations int64
}

// HitRate is hits/(hits+misses), 0 when no lookups have occurred.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	key       string
	value     []byte
	level     Level
	sizeBytes int64
	expiresAt time.Time
	elem      *list.Element
}

// Cache is the L1 CacheLayer. Every method is guarded by mu, the same
// lock-the-whole-struct shape the teacher's eventbus.Bus uses for its
// handler list.
type Cache struct {
	mu     sync.Mutex
	cfg    Config
	lru    *list.List // front = most recently used
	byKey  map[string]*entry
	size   int64
	stats  Stats
}

// New creates a Cache, clamping unset fields to sane defaults.
func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 64 << 20
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	return &Cache{
		cfg:   cfg,
		lru:   list.New(),
		byKey: make(map[string]*entry),
	}
}

// Get returns the cached value for key and whether it was present and
// unexpired. Expired entries are removed opportunistically (spec §4.3).
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byKey[key]
	if !ok {
		c.recordMiss()
		return nil, false
	}
	if c.isExpired(e) {
		c.removeLocked(e)
		c.recordMiss()
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	c.recordHit()
	return e.value, true
}

func (c *Cache) isExpired(e *entry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// Set inserts or replaces key with value at the given level and ttl (zero
// ttl uses the configured default). Oversized single entries are refused
// (spec §4.3: "if a single new entry exceeds max_size_bytes, refuse
// insertion").
func (c *Cache) Set(key string, value []byte, level Level, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(value))
	if size > c.cfg.MaxSizeBytes {
		return false
	}
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if old, ok := c.byKey[key]; ok {
		c.removeLocked(old)
	}

	e := &entry{key: key, value: value, level: level, sizeBytes: size, expiresAt: expiresAt}
	e.elem = c.lru.PushFront(e)
	c.byKey[key] = e
	c.size += size
	c.stats.Sets++

	for (len(c.byKey) > c.cfg.MaxEntries || c.size > c.cfg.MaxSizeBytes) && c.lru.Len() > 0 {
		c.evictOldest()
	}
	return true
}

func (c *Cache) evictOldest() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	c.removeLocked(e)
	c.stats.Evictions++
}

func (c *Cache) removeLocked(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.byKey, e.key)
	c.size -= e.sizeBytes
}

// Invalidate removes key if present, counted separately from evictions
// (spec §4.3 stats distinguish the two).
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byKey[key]; ok {
		c.removeLocked(e)
		c.stats.Invalidations++
	}
}

// InvalidatePrefix removes every key with the given prefix, used for
// scope-wide invalidation (memory id, agent id, user id, or query
// fingerprint families per spec §4.3).
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int
	for key, e := range c.byKey {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.removeLocked(e)
			c.stats.Invalidations++
			removed++
		}
	}
	return removed
}

func (c *Cache) recordHit() {
	if c.cfg.EnableStats {
		c.stats.Hits++
	}
}

func (c *Cache) recordMiss() {
	if c.cfg.EnableStats {
		c.stats.Misses++
	}
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len reports the current entry count, for tests and observability gauges.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}
