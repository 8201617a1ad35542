package rules

import (
	"sync"
	"time"
)

// InMemoryRulesCache is an in-memory RulesCache.
// Thread-safe for concurrent access.
type InMemoryRulesCache struct {
	rules    []PricingRule
	cachedAt time.Time
	config   CacheConfig
	now      func() time.Time
	mu       sync.RWMutex
	isValid  bool
	gen      uint64
}

// NewInMemoryRulesCache creates a new in-memory rules cache
func NewInMemoryRulesCache(config CacheConfig) *InMemoryRulesCache {
	return &InMemoryRulesCache{
		config: config,
		now:    time.Now,
	}
}

// Get returns a copy of the snapshot, or nil if the cache is invalid or expired.
// An empty rule set is returned as an empty non-nil slice.
func (c *InMemoryRulesCache) Get() []PricingRule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.live() {
		return nil
	}

	out := cloneRules(c.rules)
	if out == nil {
		out = []PricingRule{}
	}
	return out
}

// Set stores a copy of rules
func (c *InMemoryRulesCache) Set(rules []PricingRule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store(rules)
}

// SetIfGeneration stores a copy of rules unless the cache was invalidated
// after gen was read
func (c *InMemoryRulesCache) SetIfGeneration(rules []PricingRule, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return false
	}
	c.store(rules)
	return true
}

// Generation returns the invalidation counter
func (c *InMemoryRulesCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gen
}

// store must be called with mu held
func (c *InMemoryRulesCache) store(rules []PricingRule) {
	c.rules = cloneRules(rules)
	c.cachedAt = c.now()
	c.isValid = true
}

// Invalidate clears the cache
func (c *InMemoryRulesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isValid = false
	c.rules = nil
	c.gen++
}

// IsValid returns true if the cache holds a live snapshot
func (c *InMemoryRulesCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.live()
}

// live must be called with mu held
func (c *InMemoryRulesCache) live() bool {
	if !c.isValid {
		return false
	}
	if c.config.TTL > 0 && c.now().Sub(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
