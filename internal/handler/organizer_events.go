package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/model"
)

type eventReq struct {
    Title           string    `json:"title" validate:"notblank,max=200"`
    Description     string    `json:"description" validate:"max=5000"`
    Category        string    `json:"category" validate:"max=60"`
    Venue           string    `json:"venue" validate:"notblank,max=200"`
    City            string    `json:"city" validate:"max=100"`
    Latitude        *float64  `json:"latitude" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
    Longitude       *float64  `json:"longitude" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`
    StartsAt        time.Time `json:"starts_at" validate:"required"`
    EndsAt          time.Time `json:"ends_at" validate:"required"`
    TotalSeats      uint32    `json:"total_seats" validate:"min=1,max=100000"`
    PriceCents      uint32    `json:"price_cents" validate:"max=100000000"`
    PosterURL       *string   `json:"poster_url" validate:"omitempty,url,max=500"`
    RegistrationURL *string   `json:"registration_url" validate:"omitempty,url,max=500"`
    ExternalSheetID *string   `json:"external_sheet_id" validate:"omitempty,max=200"`
    Submit          bool      `json:"submit"`
}

// apply copies the request onto e.  Status and counters are left alone.
func (r eventReq) apply(e *model.Event) {
    e.Title = strings.TrimSpace(r.Title)
    e.Description = strings.TrimSpace(r.Description)
    e.Category = strings.ToLower(strings.TrimSpace(r.Category))
    e.Venue = strings.TrimSpace(r.Venue)
    e.City = strings.TrimSpace(r.City)
    e.Latitude, e.Longitude = r.Latitude, r.Longitude
    e.StartsAt, e.EndsAt = r.StartsAt.UTC(), r.EndsAt.UTC()
    e.TotalSeats = r.TotalSeats
    e.PriceCents = r.PriceCents
    e.PosterURL = trimPtr(r.PosterURL)
    e.RegistrationURL = trimPtr(r.RegistrationURL)
    e.ExternalSheetID = trimPtr(r.ExternalSheetID)
}

// organizerEvent is the organizer's view: the linked sheet is visible here.
type organizerEvent struct {
    *model.Event
    ExternalSheetID *string `json:"external_sheet_id,omitempty"`
    SeatsLeft       uint32  `json:"seats_left"`
}

func organizerView(e *model.Event) organizerEvent {
    return organizerEvent{Event: e, ExternalSheetID: e.ExternalSheetID, SeatsLeft: e.SeatsLeft()}
}

// ListMyEvents lists the caller's events, optionally by status.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    col, err := h.currentCollege(ctx, c)
    if err != nil {
        return err
    }
    events, err := h.Events.ListByCollege(ctx, col.ID, strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
    if err != nil {
        return err
    }
    out := make([]organizerEvent, 0, len(events))
    for i := range events {
        out = append(out, organizerView(&events[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// CreateEvent stores a DRAFT, or a PENDING submission when submit is set.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
    var req eventReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    if err := model.ValidateWindow(req.StartsAt, req.EndsAt); err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    col, err := h.currentCollege(ctx, c)
    if err != nil {
        return err
    }
    e := model.Event{CollegeID: col.ID, Status: model.EventDraft}
    req.apply(&e)
    if e.City == "" {
        e.City = col.City
    }
    if req.Submit {
        if err := e.Transition(model.EventPending); err != nil {
            return err
        }
    }
    if err := h.Events.Create(ctx, &e); err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, organizerView(&e))
}

// GetMyEvent returns one of the caller's events with its agenda.
func (h *OrganizerHandler) GetMyEvent(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    subs, err := h.SubEvents.ListByEvent(ctx, e.ID)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"event": organizerView(e), "sub_events": subEventViews(subs)})
}

// UpdateEvent replaces the editable fields.  Changing what students rely
// on for an approved event sends it back to moderation.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
    var req eventReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    if err := model.ValidateWindow(req.StartsAt, req.EndsAt); err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    before, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    if !before.Editable() {
        return model.ErrInvalidTransition
    }
    if err := before.ValidateCapacity(req.TotalSeats); err != nil {
        return err
    }
    after := *before
    req.apply(&after)
    if model.NeedsReview(*before, after) {
        if err := after.Transition(model.EventPending); err != nil {
            return err
        }
    }
    if err := h.Events.Update(ctx, &after); err != nil {
        return err
    }
    if before.Status == model.EventApproved {
        h.purge(ctx, c)
    }
    return c.JSON(http.StatusOK, organizerView(&after))
}

// SubmitEvent sends a DRAFT or REJECTED event to moderation.
func (h *OrganizerHandler) SubmitEvent(c echo.Context) error {
    return h.transition(c, model.EventPending)
}

// CancelEvent withdraws an approved event.  Existing bookings stay on
// record so organizers can contact attendees.
func (h *OrganizerHandler) CancelEvent(c echo.Context) error {
    return h.transition(c, model.EventCancelled)
}

func (h *OrganizerHandler) transition(c echo.Context, to string) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    from := e.Status
    if err := e.Transition(to); err != nil {
        return err
    }
    if err := h.Events.SetStatus(ctx, e.ID, from, to, nil); err != nil {
        return err
    }
    if from == model.EventApproved {
        h.purge(ctx, c)
    }
    return c.JSON(http.StatusOK, organizerView(e))
}

// DeleteEvent removes an event that has never been booked.
func (h *OrganizerHandler) DeleteEvent(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    if err := h.Events.Delete(ctx, e.ID); err != nil {
        return err
    }
    if e.Status == model.EventApproved {
        h.purge(ctx, c)
    }
    return c.NoContent(http.StatusNoContent)
}

// EventStats returns booking and attendance numbers.
func (h *OrganizerHandler) EventStats(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    st, err := h.Events.Stats(ctx, e.ID)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, st)
}

// Attendees lists ticket holders; checked_in=true|false filters by scan
// state.
func (h *OrganizerHandler) Attendees(c echo.Context) error {
    var filter *bool
    if raw := c.QueryParam("checked_in"); raw != "" {
        v, err := parseBoolParam(c, "checked_in")
        if err != nil {
            return err
        }
        filter = &v
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    list, err := h.Tickets.Attendees(ctx, e.ID, filter)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list, "total": len(list)})
}
