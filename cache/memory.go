// Package cache implements the bounded in-process result cache: a
// least-recently-used store with per-entry expiration. Computed results are
// cached here so repeated status/result queries never re-run an agent.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kpiflow/kpiflow/core"
)

// Interface compliance (compile-time assertion)
var _ core.ResultCache = (*Memory)(nil)

const (
	// DefaultCapacity bounds the number of live entries.
	DefaultCapacity = 1000
	// DefaultTTL applies when Put is called with a zero ttl.
	DefaultTTL = time.Hour
)

// Options configures a Memory cache.
type Options struct {
	// Capacity is the maximum number of entries held before the least
	// recently used one is evicted.
	Capacity int

	// DefaultTTL is applied to entries stored with a zero ttl.
	DefaultTTL time.Duration
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an LRU cache with lazy per-entry expiration. Expired entries are
// treated as absent on lookup and removed opportunistically at that point;
// there is no background reaper. The underlying LRU store is safe for
// concurrent use, matching the single-writer/many-reader access pattern of
// the orchestrator.
type Memory struct {
	lru        *lru.Cache[string, entry]
	defaultTTL time.Duration
}

// NewMemory constructs a cache with optional overrides. Invalid capacities
// fall back to DefaultCapacity so construction cannot fail.
func NewMemory(optFns ...func(o *Options)) *Memory {
	opts := Options{
		Capacity:   DefaultCapacity,
		DefaultTTL: DefaultTTL,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}

	// lru.New only errors on non-positive capacity, which is ruled out above.
	c, _ := lru.New[string, entry](opts.Capacity)

	return &Memory{lru: c, defaultTTL: opts.DefaultTTL}
}

// Put stores value under key. When the cache is at capacity the least
// recently used entry is evicted before insertion. A zero ttl applies the
// configured default.
func (m *Memory) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.lru.Add(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
}

// Get returns the value for key when present and unexpired. A hit refreshes
// the entry's LRU recency; an expired entry is removed and reported as a miss.
func (m *Memory) Get(key string) (any, bool) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Contains reports whether key is present and unexpired without updating
// LRU recency.
func (m *Memory) Contains(key string) bool {
	e, ok := m.lru.Peek(key)
	if !ok {
		return false
	}
	return !time.Now().After(e.expiresAt)
}

// Remove deletes key, reporting whether it was present.
func (m *Memory) Remove(key string) bool {
	return m.lru.Remove(key)
}

// Len returns the number of stored entries, including any expired entries
// that have not yet been looked up.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Purge drops all entries.
func (m *Memory) Purge() {
	m.lru.Purge()
}
