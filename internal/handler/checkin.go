package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"

    "github.com/iliyamo/campus-events/internal/middleware"
    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/repository"
    "github.com/iliyamo/campus-events/internal/utils"
)

// CheckinHandler admits tickets at the door.
type CheckinHandler struct {
    Secret      string
    OpensBefore time.Duration
    Colleges    *repository.CollegeRepo
    Tickets     *repository.TicketRepo
    Notify      *Notifier
}

type checkinReq struct {
    Payload string `json:"payload" validate:"notblank,max=2048"`
}

// CheckIn validates a scanned QR payload (or a typed ticket code) and marks
// the ticket as used.  College staff may only admit their own events;
// admins may admit any.
func (h *CheckinHandler) CheckIn(c echo.Context) error {
    var req checkinReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    uid, err := getUserID(c)
    if err != nil {
        return err
    }
    code, err := utils.TicketCodeFromPayload(h.Secret, req.Payload)
    if err != nil {
        return utils.ErrInvalidToken
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    collegeID := uint64(repository.AnyCollege)
    if middleware.Role(c) != model.RoleAdmin {
        col, err := h.Colleges.GetByUserID(ctx, uid)
        if errors.Is(err, repository.ErrCollegeNotFound) {
            return errCollegeProfileRequired
        }
        if err != nil {
            return err
        }
        collegeID = col.ID
    }

    res, err := h.Tickets.CheckIn(ctx, repository.CheckinRequest{
        Code:        code,
        StaffID:     uid,
        CollegeID:   collegeID,
        OpensBefore: h.OpensBefore,
    })
    if err != nil {
        return err
    }
    h.Notify.TicketCheckedIn(*res)
    return c.JSON(http.StatusOK, res)
}
