package config

import "time"

// CacheConfig controls the Redis response cache on the public listings.
// Listings change whenever a seat is booked, so entries live briefly.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 15*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "events:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if c.TTL <= 0 {
        c.TTL = 15 * time.Second
    }
    return c
}

// RateLimitConfig describes two token buckets per caller: one for reads and
// a smaller one for writes such as bookings and check-in scans.  Both refill
// continuously at PerSecond tokens per second.
type RateLimitConfig struct {
    Enabled    bool
    ReadBurst  int
    WriteBurst int
    PerSecond  float64
    Prefix     string
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:    envBool("RATE_LIMIT_ENABLED", true),
        ReadBurst:  envInt("RATE_LIMIT_READ_BURST", 60),
        WriteBurst: envInt("RATE_LIMIT_WRITE_BURST", 10),
        PerSecond:  envFloat("RATE_LIMIT_PER_SECOND", 1),
        Prefix:     envStr("RATE_LIMIT_PREFIX", "events:rl"),
    }
    return def.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.ReadBurst < 1 {
        c.ReadBurst = 1
    }
    if c.WriteBurst < 1 {
        c.WriteBurst = 1
    }
    if c.PerSecond <= 0 {
        c.PerSecond = 1
    }
    return c
}

// IdleTTL is how long an untouched bucket is kept: long enough to refill
// the larger bucket completely.
func (c RateLimitConfig) IdleTTL() time.Duration {
    burst := c.ReadBurst
    if c.WriteBurst > burst {
        burst = c.WriteBurst
    }
    return time.Duration(float64(burst)/c.PerSecond*float64(time.Second)) + time.Minute
}
