package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/config"
    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/payments"
    "github.com/iliyamo/campus-events/internal/repository"
    "github.com/iliyamo/campus-events/internal/utils"
)

// BookingHandler serves the STUDENT role: booking seats, managing bookings,
// ticket QR codes and external registration claims.
type BookingHandler struct {
    Cfg      config.Config
    Bookings *repository.BookingRepo
    Tickets  *repository.TicketRepo
    Events   *repository.EventRepo
    External *repository.ExternalRegistrationRepo
    Payments payments.Provider
    Notify   *Notifier
}

type bookReq struct {
    Seats int `json:"seats" validate:"required,min=1"`
}

// bookingResp is returned by both booking endpoints.  PaymentURL is set for
// PENDING bookings of paid events.
type bookingResp struct {
    *repository.BookingResult
    PaymentURL string `json:"payment_url,omitempty"`
}

func (h *BookingHandler) bookRequest(c echo.Context) (repository.BookRequest, error) {
    var req bookReq
    if err := bindAndValidate(c, &req); err != nil {
        return repository.BookRequest{}, err
    }
    uid, err := getUserID(c)
    if err != nil {
        return repository.BookRequest{}, err
    }
    id, err := paramID(c, "id")
    if err != nil {
        return repository.BookRequest{}, err
    }
    return repository.BookRequest{
        UserID:   uid,
        PoolID:   id,
        Seats:    req.Seats,
        MaxSeats: h.Cfg.Booking.MaxSeatsPerBooking,
        HoldTTL:  h.Cfg.Booking.PendingTTL,
    }, nil
}

// BookEvent books seats of an approved event.
func (h *BookingHandler) BookEvent(c echo.Context) error {
    req, err := h.bookRequest(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    res, err := h.Bookings.BookEvent(ctx, req)
    if err != nil {
        return err
    }
    return h.respondBooked(c, res)
}

// BookSubEvent books seats of a bookable session.
func (h *BookingHandler) BookSubEvent(c echo.Context) error {
    req, err := h.bookRequest(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    res, err := h.Bookings.BookSubEvent(ctx, req)
    if err != nil {
        return err
    }
    return h.respondBooked(c, res)
}

func (h *BookingHandler) respondBooked(c echo.Context, res *repository.BookingResult) error {
    out := bookingResp{BookingResult: res}
    b := res.Booking
    switch {
    case b.Status == model.BookingConfirmed:
        h.Notify.BookingConfirmed(*res)
    case b.Status == model.BookingPending && b.PaymentRef != nil:
        ctx, cancel := requestCtx(c)
        defer cancel()
        link, err := h.Payments.CreatePayment(ctx, *b.PaymentRef, b.AmountCents)
        if err != nil {
            c.Logger().Errorf("create payment for booking %d: %v", b.ID, err)
            // no invoice exists, so the hold cannot be paid; free the seats now
            if _, rerr := h.Bookings.CancelByPaymentRef(ctx, *b.PaymentRef); rerr != nil {
                c.Logger().Errorf("release hold of booking %d: %v", b.ID, rerr)
            }
            return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
        }
        out.PaymentURL = link
    }
    return c.JSON(http.StatusCreated, out)
}

// ListMyBookings returns the caller's bookings with their tickets.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    items, err := h.Bookings.ListByUser(ctx, uid)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBooking returns one of the caller's bookings.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    d, err := h.Bookings.GetForUser(ctx, id, uid)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, d)
}

// CancelBooking releases the seats of a booking before the event starts.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    b, err := h.Bookings.CancelByUser(ctx, id, uid)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, b)
}

// TicketQR renders the signed QR payload of a ticket as PNG.
func (h *BookingHandler) TicketQR(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    t, err := h.Tickets.GetForUser(ctx, id, uid)
    if err != nil {
        return err
    }
    if t.Status != model.TicketValid {
        return model.ErrTicketCancelled
    }
    token, err := utils.NewTicketToken(h.Cfg.JWTSecret, t.Code, t.EventID)
    if err != nil {
        return err
    }
    png, err := utils.QRPNG(token)
    if err != nil {
        return err
    }
    c.Response().Header().Set("Cache-Control", "private, max-age=300")
    return c.Blob(http.StatusOK, "image/png", png)
}

type externalClaimReq struct {
    FormEmail string `json:"form_email" validate:"required,email,max=191"`
    Note      string `json:"note" validate:"max=1000"`
}

// ClaimExternal records that the caller registered through the event's
// external form.
func (h *BookingHandler) ClaimExternal(c echo.Context) error {
    var req externalClaimReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.Events.GetByID(ctx, id)
    if err != nil {
        return err
    }
    if e.Status != model.EventApproved {
        return repository.ErrEventNotFound
    }
    if e.RegistrationURL == nil || strings.TrimSpace(*e.RegistrationURL) == "" {
        return model.ErrNoExternalForm
    }
    x, err := h.External.Create(ctx, e.ID, uid, req.FormEmail, req.Note)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, x)
}

// ListMyExternal lists the caller's external registration claims.
func (h *BookingHandler) ListMyExternal(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    items, err := h.External.ListByUser(ctx, uid)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
