package config

import (
    "context"
    "crypto/tls"
    "os"
    "time"

    "github.com/pkg/errors"
    "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance behind the rate limiter and
// the listing cache.  REDIS_URL (redis:// or rediss://) wins over
// REDIS_ADDR; REDIS_PASSWORD, REDIS_DB and REDIS_TLS apply to the latter.
// It returns (nil, nil) when REDIS_DISABLED is set and (nil, err) when the
// server does not answer a ping; callers run without Redis in both cases.
func NewRedisClient() (*redis.Client, error) {
    if envBool("REDIS_DISABLED", false) {
        return nil, nil
    }
    opts, err := redisOptions()
    if err != nil {
        return nil, err
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, errors.Wrapf(err, "redis ping %s", opts.Addr)
    }
    return client, nil
}

func redisOptions() (*redis.Options, error) {
    if url := os.Getenv("REDIS_URL"); url != "" {
        opts, err := redis.ParseURL(url)
        return opts, errors.Wrap(err, "REDIS_URL")
    }
    opts := &redis.Options{
        Addr:     envStr("REDIS_ADDR", "localhost:6379"),
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
    }
    if envBool("REDIS_TLS", false) {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts, nil
}
