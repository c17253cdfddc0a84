package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"

    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/repository"
)

// SheetReader reads the responder emails of a form response sheet.
type SheetReader interface {
    FormEmails(ctx context.Context, spreadsheetID string) ([]string, error)
}

// Purger drops cached public listings after moderation changes.
type Purger interface {
    Purge(ctx context.Context) (int, error)
}

// OrganizerHandler serves the COLLEGE role: the college profile, event and
// session management, attendee views and external registration review.
type OrganizerHandler struct {
    Colleges  *repository.CollegeRepo
    Events    *repository.EventRepo
    SubEvents *repository.SubEventRepo
    Tickets   *repository.TicketRepo
    External  *repository.ExternalRegistrationRepo
    // Sheets is nil when no Google credentials are configured.
    Sheets SheetReader
    Purger Purger
}

type collegeReq struct {
    Name         string  `json:"name" validate:"notblank,max=200"`
    City         string  `json:"city" validate:"notblank,max=100"`
    Website      *string `json:"website" validate:"omitempty,url,max=255"`
    ContactEmail *string `json:"contact_email" validate:"omitempty,email,max=191"`
}

// currentCollege resolves the caller's college profile.
func (h *OrganizerHandler) currentCollege(ctx context.Context, c echo.Context) (*model.College, error) {
    uid, err := getUserID(c)
    if err != nil {
        return nil, err
    }
    col, err := h.Colleges.GetByUserID(ctx, uid)
    if errors.Is(err, repository.ErrCollegeNotFound) {
        return nil, errCollegeProfileRequired
    }
    return col, err
}

// ownedEvent loads the :id event and checks it belongs to the caller.
func (h *OrganizerHandler) ownedEvent(ctx context.Context, c echo.Context) (*model.Event, error) {
    id, err := paramID(c, "id")
    if err != nil {
        return nil, err
    }
    col, err := h.currentCollege(ctx, c)
    if err != nil {
        return nil, err
    }
    return h.Events.GetForCollege(ctx, id, col.ID)
}

// purge clears the public listing cache.  Failures only cost freshness.
func (h *OrganizerHandler) purge(ctx context.Context, c echo.Context) {
    if h.Purger == nil {
        return
    }
    if _, err := h.Purger.Purge(ctx); err != nil {
        c.Logger().Warnf("cache purge failed: %v", err)
    }
}

// UpsertProfile creates or updates the caller's college.
func (h *OrganizerHandler) UpsertProfile(c echo.Context) error {
    var req collegeReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    col, err := h.Colleges.Upsert(ctx, model.College{
        UserID:       uid,
        Name:         strings.TrimSpace(req.Name),
        City:         strings.TrimSpace(req.City),
        Website:      trimPtr(req.Website),
        ContactEmail: trimPtr(req.ContactEmail),
    })
    if err != nil {
        return err
    }
    h.purge(ctx, c)
    return c.JSON(http.StatusOK, col)
}

// GetProfile returns the caller's college.
func (h *OrganizerHandler) GetProfile(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    col, err := h.currentCollege(ctx, c)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, col)
}
