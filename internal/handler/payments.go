package handler

import (
    "fmt"
    "html"
    "io"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/payments"
    "github.com/iliyamo/campus-events/internal/repository"
)

const maxWebhookBody = 64 << 10

// PaymentHandler receives gateway callbacks for paid bookings.
type PaymentHandler struct {
    Bookings *repository.BookingRepo
    Payments payments.Provider
    Notify   *Notifier
}

// Webhook applies a verified payment outcome.  Repeated deliveries are
// answered with the booking's current state.
func (h *PaymentHandler) Webhook(c echo.Context) error {
    body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
    if err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    headers := make(map[string]string, len(c.Request().Header))
    for k, v := range c.Request().Header {
        if len(v) > 0 {
            headers[strings.ToLower(k)] = v[0]
        }
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    invoice, status, err := h.Payments.ParseWebhook(ctx, body, headers)
    if err != nil {
        c.Logger().Warnf("payment webhook rejected: %v", err)
        return err
    }

    switch status {
    case payments.StatusPaid:
        res, err := h.Bookings.ConfirmByPaymentRef(ctx, invoice)
        if err != nil {
            return err
        }
        if !res.Replayed {
            h.Notify.BookingConfirmed(*res)
        }
        return c.JSON(http.StatusOK, res)
    case payments.StatusCancelled:
        b, err := h.Bookings.CancelByPaymentRef(ctx, invoice)
        if err != nil {
            return err
        }
        return c.JSON(http.StatusOK, echo.Map{"booking": b})
    }
    return payments.ErrBadPayload
}

// StubCheckout is the checkout page the stub provider links to.  It only
// shows what a real gateway would charge.
func (h *PaymentHandler) StubCheckout(c echo.Context) error {
    invoice := strings.TrimSpace(c.QueryParam("invoice"))
    if invoice == "" {
        return echo.NewHTTPError(http.StatusBadRequest, "invoice required")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    b, err := h.Bookings.GetByPaymentRef(ctx, invoice)
    if err != nil {
        return err
    }
    expires := "-"
    if b.ExpiresAt != nil {
        expires = b.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")
    }
    page := fmt.Sprintf(`<!doctype html><html><body>
<h1>Test payment</h1>
<p>Invoice <code>%s</code></p>
<p>Booking %d, %d seat(s), amount %d.%02d</p>
<p>Status %s, hold expires %s</p>
<p>POST {"invoice": "%s", "status": "paid"} to /v1/payments/webhook signed with the webhook secret to complete it.</p>
</body></html>`,
        html.EscapeString(invoice), b.ID, b.Seats, b.AmountCents/100, b.AmountCents%100,
        html.EscapeString(b.Status), expires, html.EscapeString(invoice))
    return c.HTML(http.StatusOK, page)
}
