package middleware

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/campus-events/internal/config"
)

// bucketScript refills continuously and takes one token.  Tokens are kept
// fractional in the hash; the reply is {allowed, whole tokens left, wait ms}.
var bucketScript = redis.NewScript(`
local burst = tonumber(ARGV[2])
local per_ms = tonumber(ARGV[3])
local now = tonumber(ARGV[1])
local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * per_ms)
local allowed, wait = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) / per_ms)
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {allowed, math.floor(tokens), wait}
`)

func isWrite(method string) bool {
    switch method {
    case http.MethodGet, http.MethodHead, http.MethodOptions:
        return false
    }
    return true
}

// bucketKey picks the caller's bucket: per user once JWTAuth has run,
// per client IP otherwise, split into read and write scopes.
func bucketKey(prefix string, c echo.Context) string {
    scope := "r"
    if isWrite(c.Request().Method) {
        scope = "w"
    }
    who := "ip:" + c.RealIP()
    if id, ok := UserID(c); ok {
        who = "u:" + strconv.FormatUint(id, 10)
    }
    return prefix + ":" + scope + ":" + who
}

// NewTokenBucket limits each caller with a Redis token bucket.  Writes draw
// from a smaller bucket than reads.  Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    idle := cfg.IdleTTL().Milliseconds()
    perMs := cfg.PerSecond / 1000
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            burst := cfg.ReadBurst
            if isWrite(c.Request().Method) {
                burst = cfg.WriteBurst
            }
            key := bucketKey(cfg.Prefix, c)
            reply, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), burst, perMs, idle).Int64Slice()
            if err != nil || len(reply) != 3 {
                c.Logger().Warnf("rate limit %s: %v", key, err)
                return next(c)
            }
            allowed, left, waitMs := reply[0] == 1, reply[1], reply[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(burst))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
            if allowed {
                return next(c)
            }
            retry := retryAfterSeconds(waitMs)
            h.Set("Retry-After", strconv.Itoa(retry))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate_limited",
                "message":     "too many requests",
                "retry_after": retry,
            })
        }
    }
}

// retryAfterSeconds rounds a wait up to whole seconds, at least one.
func retryAfterSeconds(waitMs int64) int {
    s := int((waitMs + 999) / 1000)
    if s < 1 {
        s = 1
    }
    return s
}
