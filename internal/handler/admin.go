package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/repository"
)

// AdminHandler serves moderation and user management for ADMIN accounts.
type AdminHandler struct {
    Events *repository.EventRepo
    Users  *repository.UserRepo
    Purger Purger
}

type rejectReq struct {
    Reason string `json:"reason" validate:"notblank,max=1000"`
}

type activeReq struct {
    Active *bool `json:"active" validate:"required"`
}

// ListEvents returns events in one moderation status, PENDING by default.
func (h *AdminHandler) ListEvents(c echo.Context) error {
    status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
    if status == "" {
        status = model.EventPending
    }
    switch status {
    case model.EventDraft, model.EventPending, model.EventApproved, model.EventRejected, model.EventCancelled:
    default:
        return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
    }
    page, size := pageParams(c)
    ctx, cancel := requestCtx(c)
    defer cancel()
    items, err := h.Events.ListByStatus(ctx, status, size, (page-1)*size)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "page": page, "page_size": size})
}

// ApproveEvent publishes a PENDING event.
func (h *AdminHandler) ApproveEvent(c echo.Context) error {
    return h.decide(c, model.EventApproved, nil)
}

// RejectEvent sends a PENDING event back with a reason.
func (h *AdminHandler) RejectEvent(c echo.Context) error {
    var req rejectReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    reason := strings.TrimSpace(req.Reason)
    return h.decide(c, model.EventRejected, &reason)
}

func (h *AdminHandler) decide(c echo.Context, to string, reason *string) error {
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    if err := h.Events.SetStatus(ctx, id, model.EventPending, to, reason); err != nil {
        return err
    }
    if h.Purger != nil {
        if _, err := h.Purger.Purge(ctx); err != nil {
            c.Logger().Warnf("cache purge failed: %v", err)
        }
    }
    e, err := h.Events.GetByID(ctx, id)
    if err != nil {
        return err
    }
    c.Logger().Infof("event %d moved to %s", id, to)
    return c.JSON(http.StatusOK, e)
}

// ListUsers lists accounts, optionally filtered by role.
func (h *AdminHandler) ListUsers(c echo.Context) error {
    role := strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))
    switch role {
    case "", model.RoleStudent, model.RoleCollege, model.RoleAdmin:
    default:
        return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
    }
    page, size := pageParams(c)
    ctx, cancel := requestCtx(c)
    defer cancel()
    users, err := h.Users.List(ctx, role, size, (page-1)*size)
    if err != nil {
        return err
    }
    out := make([]userPart, 0, len(users))
    for _, u := range users {
        out = append(out, toUserPart(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out, "page": page, "page_size": size})
}

// SetUserActive enables or disables an account.
func (h *AdminHandler) SetUserActive(c echo.Context) error {
    var req activeReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    if err := h.Users.SetActive(ctx, id, *req.Active); err != nil {
        return err
    }
    return c.NoContent(http.StatusNoContent)
}
