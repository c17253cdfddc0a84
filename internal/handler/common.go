package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/middleware"
)

const (
    requestTimeout  = 5 * time.Second
    defaultPageSize = 20
    maxPageSize     = 100
)

// requestCtx bounds the database work of one request.
func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the authenticated caller or a 401 error.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
    }
    return id, nil
}

// pageParams reads page and page_size, clamping page_size to maxPageSize.
func pageParams(c echo.Context) (page, size int) {
    page, _ = strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    size, _ = strconv.Atoi(c.QueryParam("page_size"))
    if size < 1 {
        size = defaultPageSize
    }
    if size > maxPageSize {
        size = maxPageSize
    }
    return page, size
}

// parseTimeParam accepts RFC 3339 timestamps or bare dates (UTC midnight).
func parseTimeParam(raw string) (*time.Time, error) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return nil, nil
    }
    for _, layout := range []string{time.RFC3339, "2006-01-02"} {
        if t, err := time.Parse(layout, raw); err == nil {
            t = t.UTC()
            return &t, nil
        }
    }
    return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid time "+raw)
}

// parseBoolParam treats a missing value as false.
func parseBoolParam(c echo.Context, name string) (bool, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return false, nil
    }
    b, err := strconv.ParseBool(raw)
    if err != nil {
        return false, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
    }
    return b, nil
}

func trimPtr(s *string) *string {
    if s == nil {
        return nil
    }
    v := strings.TrimSpace(*s)
    if v == "" {
        return nil
    }
    return &v
}
