package rules

import "time"

// RulesCache holds a snapshot of the ordered rule list between edits.
// This allows swapping between in-memory, Redis, or other caching implementations.
type RulesCache interface {
	// Get returns a copy of the cached snapshot, or nil on a miss or expiry
	Get() []PricingRule

	// Set stores a copy of rules as the current snapshot
	Set(rules []PricingRule)

	// SetIfGeneration stores rules only if no Invalidate happened since
	// Generation returned gen, and reports whether it stored them
	SetIfGeneration(rules []PricingRule, gen uint64) bool

	// Generation is bumped by every Invalidate
	Generation() uint64

	// Invalidate clears the cache, forcing a reload on next Get
	Invalidate()

	// IsValid returns true if the cache holds a live snapshot
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live of a snapshot.
	// Zero means no expiry; the snapshot only goes away on Invalidate.
	TTL time.Duration
}

// DefaultCacheConfig returns the configuration used when none is given
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 0, // only invalidate on mutations
	}
}
