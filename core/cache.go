package core

import "time"

// ResultCache is a bounded key→value store with per-entry expiration and
// least-recently-used eviction. The orchestrator writes completed task
// results through it; lookups of expired entries behave as misses.
type ResultCache interface {
	// Put stores a value under key with the given time-to-live. A ttl of
	// zero applies the cache's configured default.
	Put(key string, value any, ttl time.Duration)

	// Get returns the value when present and unexpired. A miss is signalled
	// by the boolean, never by an error. A hit refreshes LRU recency.
	Get(key string) (any, bool)
}
