package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/campus-events/internal/config"
)

// cachedResponse is what a listing entry holds in Redis.
type cachedResponse struct {
    Status      int    `json:"s"`
    ContentType string `json:"ct"`
    Body        []byte `json:"b"`
}

// teeWriter forwards the response and keeps a copy of the first limit bytes.
// overflow is set once the body outgrows the limit; such responses are not
// stored.
type teeWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// listingKey hashes the route and the canonical query so that
// ?city=x&page=2 and ?page=2&city=x share an entry.
func listingKey(prefix string, c echo.Context) string {
    sum := sha1.Sum([]byte(c.Request().URL.Path + "?" + c.QueryParams().Encode()))
    return prefix + ":" + hex.EncodeToString(sum[:])
}

func encodeEntry(e cachedResponse) ([]byte, error) { return json.Marshal(e) }

func decodeEntry(bs []byte) (cachedResponse, bool) {
    var e cachedResponse
    if err := json.Unmarshal(bs, &e); err != nil || e.Status == 0 {
        return cachedResponse{}, false
    }
    return e, true
}

// NewRedisCache caches 200 responses of the public GET listings.  Requests
// carrying a bearer token or "Cache-Control: no-cache" skip the lookup; the
// latter still refreshes the entry.  Redis failures degrade to uncached
// responses.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if req.Method != http.MethodGet || req.Header.Get(echo.HeaderAuthorization) != "" {
                return next(c)
            }
            key := listingKey(cfg.Prefix, c)
            refresh := strings.Contains(strings.ToLower(req.Header.Get("Cache-Control")), "no-cache")

            if !refresh {
                if bs, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
                    if hit, ok := decodeEntry(bs); ok {
                        c.Response().Header().Set("X-Cache", "HIT")
                        return c.Blob(hit.Status, hit.ContentType, hit.Body)
                    }
                }
            }

            tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = tw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if tw.status != http.StatusOK || tw.overflow {
                return nil
            }
            payload, err := encodeEntry(cachedResponse{
                Status:      tw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        tw.buf.Bytes(),
            })
            if err == nil {
                if err := rdb.Set(context.Background(), key, payload, cfg.TTL).Err(); err != nil {
                    c.Logger().Warnf("cache store %s: %v", key, err)
                }
            }
            return nil
        }
    }
}

// CachePurger drops cached listings after writes that change what the
// public sees, such as an approval or a cancellation.
type CachePurger struct {
    rdb    *redis.Client
    prefix string
}

// NewCachePurger returns a purger; a nil client makes Purge a no-op.
func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client) *CachePurger {
    return &CachePurger{rdb: rdb, prefix: cfg.Prefix}
}

// Purge deletes every key under the cache prefix and reports how many were
// removed.
func (p *CachePurger) Purge(ctx context.Context) (int, error) {
    if p == nil || p.rdb == nil {
        return 0, nil
    }
    removed := 0
    iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 200).Iterator()
    batch := make([]string, 0, 200)
    flush := func() error {
        if len(batch) == 0 {
            return nil
        }
        n, err := p.rdb.Del(ctx, batch...).Result()
        removed += int(n)
        batch = batch[:0]
        return err
    }
    for iter.Next(ctx) {
        batch = append(batch, iter.Val())
        if len(batch) == cap(batch) {
            if err := flush(); err != nil {
                return removed, err
            }
        }
    }
    if err := iter.Err(); err != nil {
        return removed, err
    }
    return removed, flush()
}
