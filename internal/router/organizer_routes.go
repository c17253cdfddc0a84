package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-events/internal/handler"
	"github.com/iliyamo/campus-events/internal/middleware"
	"github.com/iliyamo/campus-events/internal/model"
)

// RegisterOrganizer registers COLLEGE-scoped endpoints.  Event ownership is
// checked in the handlers.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCollege),
	)

	// ---- Profile ----
	g.GET("/college/profile", o.GetProfile)
	g.PUT("/college/profile", o.UpsertProfile)

	// ---- Events ----
	g.GET("/organizer/events", o.ListMyEvents)
	g.POST("/organizer/events", o.CreateEvent)
	g.GET("/organizer/events/:id", o.GetMyEvent)
	g.PUT("/organizer/events/:id", o.UpdateEvent)
	g.DELETE("/organizer/events/:id", o.DeleteEvent)
	g.POST("/organizer/events/:id/submit", o.SubmitEvent)
	g.POST("/organizer/events/:id/cancel", o.CancelEvent)
	g.GET("/organizer/events/:id/stats", o.EventStats)
	g.GET("/organizer/events/:id/attendees", o.Attendees)

	// ---- Sessions ----
	g.POST("/organizer/events/:id/sub-events", o.CreateSubEvent)
	g.PUT("/organizer/events/:id/sub-events/:sid", o.UpdateSubEvent)
	g.DELETE("/organizer/events/:id/sub-events/:sid", o.DeleteSubEvent)

	// ---- External registrations ----
	g.GET("/organizer/events/:id/external-registrations", o.ListExternal)
	g.PATCH("/organizer/events/:id/external-registrations/:rid", o.ReviewExternal)
	g.POST("/organizer/events/:id/external-registrations/import", o.ImportExternal)
}

// RegisterCheckin registers the door scan endpoint for college staff and
// admins.
func RegisterCheckin(e *echo.Echo, h *handler.CheckinHandler, jwtSecret string) {
	e.POST("/v1/checkin", h.CheckIn,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCollege, model.RoleAdmin),
	)
}

// RegisterAdmin registers moderation and user management under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/events", h.ListEvents)
	g.POST("/events/:id/approve", h.ApproveEvent)
	g.POST("/events/:id/reject", h.RejectEvent)
	g.GET("/users", h.ListUsers)
	g.PATCH("/users/:id", h.SetUserActive)
}
