package middleware

// identity.go exposes the identity stored by JWTAuth to handlers and to the
// other middleware in this package.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's ID.  ok is false on routes that
// are not behind JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated user's role or "" for guests.
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// SetIdentity stores an identity in the context the way JWTAuth does.
// Tests use it to call handlers directly.
func SetIdentity(c echo.Context, userID uint64, role string) {
    c.Set(ctxUserID, userID)
    c.Set(ctxRole, role)
}
