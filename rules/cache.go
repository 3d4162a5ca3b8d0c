package rules

import "time"

// RuleSetCache holds the rule set a service currently evaluates against, so that
// requests without their own rules do not re-read the source every time
type RuleSetCache interface {
	// Get retrieves the cached rule set, returns nil on a miss or after expiry
	Get() RuleSet

	// Set stores a rule set
	Set(ruleSet RuleSet)

	// Last returns the most recently stored rule set even when stale, nil if none
	Last() RuleSet

	// IsValid returns true if the cache has fresh data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for the cached rule set.
	// Zero means no expiration; the set is only replaced on reload.
	TTL time.Duration
}
