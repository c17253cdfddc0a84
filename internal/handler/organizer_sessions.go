package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/repository"
)

type subEventReq struct {
    Title       string    `json:"title" validate:"notblank,max=200"`
    Description string    `json:"description" validate:"max=5000"`
    Venue       string    `json:"venue" validate:"max=200"`
    StartsAt    time.Time `json:"starts_at" validate:"required"`
    EndsAt      time.Time `json:"ends_at" validate:"required"`
    Bookable    bool      `json:"bookable"`
    TotalSeats  uint32    `json:"total_seats" validate:"required_if=Bookable true,max=100000"`
}

func (r subEventReq) apply(s *model.SubEvent) {
    s.Title = strings.TrimSpace(r.Title)
    s.Description = strings.TrimSpace(r.Description)
    s.Venue = strings.TrimSpace(r.Venue)
    s.StartsAt, s.EndsAt = r.StartsAt.UTC(), r.EndsAt.UTC()
    s.Bookable = r.Bookable
    s.TotalSeats = r.TotalSeats
}

// ownedSubEvent loads :sid and checks it belongs to the :id event.
func (h *OrganizerHandler) ownedSubEvent(ctx context.Context, c echo.Context, e *model.Event) (*model.SubEvent, error) {
    sid, err := paramID(c, "sid")
    if err != nil {
        return nil, err
    }
    s, err := h.SubEvents.GetByID(ctx, sid)
    if err != nil {
        return nil, err
    }
    if s.EventID != e.ID {
        return nil, repository.ErrSubEventNotFound
    }
    return s, nil
}

// CreateSubEvent adds a session to one of the caller's events.
func (h *OrganizerHandler) CreateSubEvent(c echo.Context) error {
    var req subEventReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    if !e.Editable() {
        return model.ErrInvalidTransition
    }
    s := model.SubEvent{EventID: e.ID}
    req.apply(&s)
    if err := s.ValidateWithin(*e); err != nil {
        return err
    }
    if err := h.SubEvents.Create(ctx, &s); err != nil {
        return err
    }
    if e.Status == model.EventApproved {
        h.purge(ctx, c)
    }
    return c.JSON(http.StatusCreated, SubEventView{SubEvent: s, SeatsLeft: s.SeatsLeft()})
}

// UpdateSubEvent rewrites a session.
func (h *OrganizerHandler) UpdateSubEvent(c echo.Context) error {
    var req subEventReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    if !e.Editable() {
        return model.ErrInvalidTransition
    }
    s, err := h.ownedSubEvent(ctx, c, e)
    if err != nil {
        return err
    }
    req.apply(s)
    if err := s.ValidateWithin(*e); err != nil {
        return err
    }
    if err := h.SubEvents.Update(ctx, s); err != nil {
        return err
    }
    if e.Status == model.EventApproved {
        h.purge(ctx, c)
    }
    return c.JSON(http.StatusOK, SubEventView{SubEvent: *s, SeatsLeft: s.SeatsLeft()})
}

// DeleteSubEvent removes a session without bookings.
func (h *OrganizerHandler) DeleteSubEvent(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    s, err := h.ownedSubEvent(ctx, c, e)
    if err != nil {
        return err
    }
    if err := h.SubEvents.Delete(ctx, s.ID); err != nil {
        return err
    }
    if e.Status == model.EventApproved {
        h.purge(ctx, c)
    }
    return c.NoContent(http.StatusNoContent)
}
