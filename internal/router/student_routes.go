package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-events/internal/handler"
	"github.com/iliyamo/campus-events/internal/middleware"
	"github.com/iliyamo/campus-events/internal/model"
)

// RegisterStudent registers student-scoped endpoints under /v1.  All routes
// require a valid JWT and the STUDENT role.  Ownership of bookings and
// tickets is checked in the handlers.
func RegisterStudent(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	)
	g.POST("/events/:id/book", h.BookEvent)
	g.POST("/sub-events/:id/book", h.BookSubEvent)
	g.GET("/my-bookings", h.ListMyBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.DELETE("/bookings/:id", h.CancelBooking)
	g.GET("/tickets/:id/qr", h.TicketQR)

	g.POST("/events/:id/external-registrations", h.ClaimExternal)
	g.GET("/my-external-registrations", h.ListMyExternal)
}

// RegisterPayments registers the gateway callback and the stub checkout
// page.  Neither is behind JWTAuth: the webhook is authenticated by its
// signature.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, withStubPage bool) {
	e.POST("/v1/payments/webhook", h.Webhook)
	if withStubPage {
		e.GET("/v1/payments/stub", h.StubCheckout)
	}
}
