package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadBookingConfigDefaults(t *testing.T) {
    t.Setenv("MAX_SEATS_PER_BOOKING", "")
    t.Setenv("PENDING_BOOKING_TTL", "")
    c := LoadBookingConfig()
    assert.Equal(t, 10, c.MaxSeatsPerBooking)
    assert.Equal(t, 15*time.Minute, c.PendingTTL)
    assert.Equal(t, time.Minute, c.SweepInterval)
    assert.Equal(t, 2*time.Hour, c.CheckinWindowBefore)
}

func TestLoadBookingConfigClampsInvalidValues(t *testing.T) {
    t.Setenv("MAX_SEATS_PER_BOOKING", "0")
    t.Setenv("PENDING_BOOKING_TTL", "-5m")
    t.Setenv("EXPIRY_SWEEP_INTERVAL", "garbage")
    c := LoadBookingConfig()
    assert.Equal(t, 1, c.MaxSeatsPerBooking)
    assert.Equal(t, 15*time.Minute, c.PendingTTL)
    assert.Equal(t, time.Minute, c.SweepInterval)
}

func TestRateLimitNormalize(t *testing.T) {
    c := RateLimitConfig{ReadBurst: 0, WriteBurst: -1, PerSecond: 0}.normalize()
    assert.Equal(t, 1, c.ReadBurst)
    assert.Equal(t, 1, c.WriteBurst)
    assert.Equal(t, 1.0, c.PerSecond)
    assert.Equal(t, time.Minute+time.Second, c.IdleTTL())

    c = RateLimitConfig{ReadBurst: 60, WriteBurst: 10, PerSecond: 2}.normalize()
    assert.Equal(t, time.Minute+30*time.Second, c.IdleTTL())
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_BOOL", "YES")
    t.Setenv("X_FLOAT", " 0.5 ")
    assert.True(t, envBool("X_BOOL", false))
    assert.False(t, envBool("X_MISSING_BOOL", false))
    assert.Equal(t, 0.5, envFloat("X_FLOAT", 1))
    assert.Equal(t, 2.0, envFloat("X_MISSING_FLOAT", 2))
    assert.Equal(t, 7, envInt("X_MISSING_INT", 7))
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_ENABLED", "false")
    t.Setenv("CACHE_TTL", "1m")
    c := LoadCacheConfig()
    assert.False(t, c.Enabled)
    assert.Equal(t, time.Minute, c.TTL)

    t.Setenv("CACHE_TTL", "-1s")
    assert.Equal(t, 15*time.Second, LoadCacheConfig().TTL)
}

func TestRedisOptions(t *testing.T) {
    t.Setenv("REDIS_URL", "")
    t.Setenv("REDIS_ADDR", "cache:6380")
    t.Setenv("REDIS_DB", "2")
    t.Setenv("REDIS_TLS", "true")
    o, err := redisOptions()
    assert.NoError(t, err)
    assert.Equal(t, "cache:6380", o.Addr)
    assert.Equal(t, 2, o.DB)
    assert.NotNil(t, o.TLSConfig)

    t.Setenv("REDIS_URL", "redis://:pw@other:6379/3")
    o, err = redisOptions()
    assert.NoError(t, err)
    assert.Equal(t, "other:6379", o.Addr)
    assert.Equal(t, "pw", o.Password)
    assert.Equal(t, 3, o.DB)

    t.Setenv("REDIS_URL", "http://nope")
    _, err = redisOptions()
    assert.Error(t, err)
}

func TestRedisDisabled(t *testing.T) {
    t.Setenv("REDIS_DISABLED", "1")
    c, err := NewRedisClient()
    assert.Nil(t, c)
    assert.NoError(t, err)
}
