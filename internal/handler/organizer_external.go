package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/sheets"
)

type reviewReq struct {
    Status string `json:"status" validate:"required,oneof=VERIFIED REJECTED"`
}

// ListExternal lists the off-platform registration claims of an event.
func (h *OrganizerHandler) ListExternal(c echo.Context) error {
    status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
    switch status {
    case "", model.ExternalUnverified, model.ExternalVerified, model.ExternalRejected:
    default:
        return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    items, err := h.External.ListByEvent(ctx, e.ID, status)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "total": len(items)})
}

// ReviewExternal verifies or rejects one UNVERIFIED claim.
func (h *OrganizerHandler) ReviewExternal(c echo.Context) error {
    var req reviewReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    rid, err := paramID(c, "rid")
    if err != nil {
        return err
    }
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    x, err := h.External.Review(ctx, rid, e.ID, uid, req.Status)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, x)
}

// ImportExternal reads the event's linked form response sheet and verifies
// every pending claim whose email appears in it.
func (h *OrganizerHandler) ImportExternal(c echo.Context) error {
    if h.Sheets == nil {
        return sheets.ErrNotConfigured
    }
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    e, err := h.ownedEvent(ctx, c)
    if err != nil {
        return err
    }
    if e.ExternalSheetID == nil {
        return echo.NewHTTPError(http.StatusBadRequest, "event has no linked sheet")
    }
    emails, err := h.Sheets.FormEmails(ctx, *e.ExternalSheetID)
    if err != nil {
        c.Logger().Warnf("sheet import for event %d: %v", e.ID, err)
        return echo.NewHTTPError(http.StatusBadGateway, "could not read sheet")
    }
    verified, err := h.External.VerifyByEmails(ctx, e.ID, uid, emails)
    if err != nil {
        return err
    }
    pending, err := h.External.ListByEvent(ctx, e.ID, model.ExternalUnverified)
    if err != nil {
        return err
    }
    c.Logger().Infof("sheet import for event %d: %d emails, %d verified", e.ID, len(emails), verified)
    return c.JSON(http.StatusOK, echo.Map{
        "emails_read":      len(emails),
        "verified":         verified,
        "still_unverified": len(pending),
    })
}
