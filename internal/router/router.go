package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/campus-events/internal/handler"
	"github.com/iliyamo/campus-events/internal/middleware"
)

// RegisterRoutes registers the probes.  /healthz is liveness, /readyz
// checks the database.
func RegisterRoutes(e *echo.Echo, db *sql.DB, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db, rdb))
}

// RegisterAuth registers the authentication routes.  Token operations live
// under /v1/auth; /v1/me requires a valid access token of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// keeps the refresh token
	g.POST("/refresh-access", a.RefreshAccess)
	// logout works with a refresh token alone, so it stays outside JWTAuth
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints.  cache wraps
// the listings; pass nil to serve them uncached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	g := e.Group("/v1", mw...)
	g.GET("/events", p.ListEvents)
	g.GET("/events/:id", p.GetEvent)
	g.GET("/colleges", p.ListColleges)
	g.GET("/colleges/:id/events", p.ListCollegeEvents)
}
