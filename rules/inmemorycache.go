package rules

import (
	"sync"
	"time"
)

// InMemoryRuleSetCache is a mutex-guarded RuleSetCache
type InMemoryRuleSetCache struct {
	ruleSet  RuleSet
	cachedAt time.Time
	config   CacheConfig
	mu       sync.RWMutex
	isValid  bool
}

// NewInMemoryRuleSetCache creates an empty cache
func NewInMemoryRuleSetCache(config CacheConfig) *InMemoryRuleSetCache {
	return &InMemoryRuleSetCache{
		config: config,
	}
}

// Get returns a copy of the cached rule set, nil if invalid or expired
func (c *InMemoryRuleSetCache) Get() RuleSet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil
	}
	return cloneRuleSet(c.ruleSet)
}

// Set stores a copy of ruleSet
func (c *InMemoryRuleSetCache) Set(ruleSet RuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ruleSet == nil {
		ruleSet = RuleSet{}
	}
	c.ruleSet = cloneRuleSet(ruleSet)
	c.cachedAt = time.Now()
	c.isValid = true
}

// Last returns a copy of the most recent rule set regardless of freshness
func (c *InMemoryRuleSetCache) Last() RuleSet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return cloneRuleSet(c.ruleSet)
}

// IsValid returns true if the cache holds a fresh rule set
func (c *InMemoryRuleSetCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.fresh()
}

// fresh must be called with mu held
func (c *InMemoryRuleSetCache) fresh() bool {
	if !c.isValid {
		return false
	}
	if c.config.TTL > 0 && time.Since(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
