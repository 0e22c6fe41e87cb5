package config

import "time"

// CacheConfig tunes the Redis response cache in front of the seat map.
// The map is read by every shopper on every poll but correctness never
// depends on it (the hold path re-checks the seat row), so a short TTL
// buys a large read reduction at no risk of overselling.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int // responses larger than this are served but not cached
}

// LoadCacheConfig reads CACHE_* environment variables, falling back to
// defaults.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 3*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "seatmap"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 3 * time.Second
	}
	return cfg
}
