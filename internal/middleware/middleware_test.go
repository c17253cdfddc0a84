package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/campus-events/internal/config"
    "github.com/iliyamo/campus-events/internal/utils"
)

const testSecret = "mw-secret"

func run(t *testing.T, mw []echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context) {
    t.Helper()
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
    for i := len(mw) - 1; i >= 0; i-- {
        h = mw[i](h)
    }
    require.NoError(t, h(c))
    return rec, c
}

func TestJWTAuthSetsIdentity(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, 17, "COLLEGE", 5)
    require.NoError(t, err)
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer "+tok.Token)

    rec, c := run(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    id, ok := UserID(c)
    assert.True(t, ok)
    assert.Equal(t, uint64(17), id)
    assert.Equal(t, "COLLEGE", Role(c))
}

func TestJWTAuthRejects(t *testing.T) {
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec, _ := run(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, req)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    ticket, err := utils.NewTicketToken(testSecret, "5b0f3c1e-8f43-4a53-9d0e-1b7a4f1c2d3e", 7)
    require.NoError(t, err)
    req = httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer "+ticket)
    rec, _ = run(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, req)
    assert.Equal(t, http.StatusUnauthorized, rec.Code, "ticket tokens are not access tokens")
}

func TestRequireRole(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, 3, "STUDENT", 5)
    require.NoError(t, err)
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer "+tok.Token)

    rec, _ := run(t, []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole("COLLEGE", "ADMIN")}, req)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    req = httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer "+tok.Token)
    rec, _ = run(t, []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole("STUDENT")}, req)
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
    req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
    rec, _ := run(t, []echo.MiddlewareFunc{
        NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
        NewRedisCache(config.CacheConfig{Enabled: true}, nil),
    }, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestEntryRoundTrip(t *testing.T) {
    bs, err := encodeEntry(cachedResponse{Status: http.StatusOK, ContentType: "application/json", Body: []byte(`{"data":[]}`)})
    require.NoError(t, err)
    got, ok := decodeEntry(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, got.Status)
    assert.Equal(t, "application/json", got.ContentType)
    assert.Equal(t, `{"data":[]}`, string(got.Body))

    _, ok = decodeEntry([]byte("{}"))
    assert.False(t, ok)
    _, ok = decodeEntry([]byte{1, 2})
    assert.False(t, ok)
}

func TestListingKeyIgnoresQueryOrder(t *testing.T) {
    e := echo.New()
    a := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events?city=Pune&page=2", nil), httptest.NewRecorder())
    b := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events?page=2&city=Pune", nil), httptest.NewRecorder())
    other := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events?page=3&city=Pune", nil), httptest.NewRecorder())

    assert.Equal(t, listingKey("events:cache", a), listingKey("events:cache", b))
    assert.NotEqual(t, listingKey("events:cache", a), listingKey("events:cache", other))
    assert.Contains(t, listingKey("events:cache", a), "events:cache:")
}

func TestTeeWriterStopsAtLimit(t *testing.T) {
    rec := httptest.NewRecorder()
    w := &teeWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
    _, _ = w.Write([]byte("abc"))
    assert.False(t, w.overflow)
    _, _ = w.Write([]byte("de"))
    assert.True(t, w.overflow)
    assert.Equal(t, "abcde", rec.Body.String(), "client still receives the full body")
}

func TestBucketKeyScopes(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/events/1/book", nil)
    req.Header.Set("X-Real-IP", "10.0.0.9")
    c := e.NewContext(req, httptest.NewRecorder())

    assert.Equal(t, "events:rl:w:ip:10.0.0.9", bucketKey("events:rl", c))
    SetIdentity(c, 42, "STUDENT")
    assert.Equal(t, "events:rl:w:u:42", bucketKey("events:rl", c))

    get := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events", nil), httptest.NewRecorder())
    SetIdentity(get, 42, "STUDENT")
    assert.Equal(t, "events:rl:r:u:42", bucketKey("events:rl", get))
}

func TestRetryAfterSeconds(t *testing.T) {
    assert.Equal(t, 1, retryAfterSeconds(0))
    assert.Equal(t, 1, retryAfterSeconds(1000))
    assert.Equal(t, 2, retryAfterSeconds(1001))
}

func TestNilPurger(t *testing.T) {
    var p *CachePurger
    n, err := p.Purge(httptest.NewRequest(http.MethodGet, "/", nil).Context())
    assert.NoError(t, err)
    assert.Zero(t, n)
    n, err = NewCachePurger(config.CacheConfig{Prefix: "x"}, nil).Purge(httptest.NewRequest(http.MethodGet, "/", nil).Context())
    assert.NoError(t, err)
    assert.Zero(t, n)
}
