package config

import "time"

// CacheConfig defines settings for the availability response cache.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// The TTL is deliberately short: availability changes with every committed
// hold and a stale read is only acceptable for about a second of browsing.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", time.Second),
		Prefix:  envStr("CACHE_PREFIX", "cache"),
	}
}
