package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"

    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/payments"
    "github.com/iliyamo/campus-events/internal/repository"
    "github.com/iliyamo/campus-events/internal/sheets"
    "github.com/iliyamo/campus-events/internal/utils"
)

// errCollegeProfileRequired is returned to COLLEGE users that have not set
// up their organizer profile yet.
var errCollegeProfileRequired = errors.New("college profile required")

type errorMapping struct {
    target error
    status int
    code   string
}

// domainErrors maps repository and model sentinels onto HTTP responses.
// The first matching entry wins.
var domainErrors = []errorMapping{
    {repository.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
    {repository.ErrCollegeNotFound, http.StatusNotFound, "college_not_found"},
    {repository.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
    {repository.ErrSubEventNotFound, http.StatusNotFound, "sub_event_not_found"},
    {repository.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
    {repository.ErrTicketNotFound, http.StatusNotFound, "ticket_not_found"},
    {repository.ErrExternalNotFound, http.StatusNotFound, "registration_not_found"},
    {repository.ErrForbidden, http.StatusForbidden, "forbidden"},
    {errCollegeProfileRequired, http.StatusForbidden, "college_profile_required"},
    {repository.ErrEmailExists, http.StatusConflict, "email_exists"},
    {repository.ErrDuplicate, http.StatusConflict, "already_registered"},
    {repository.ErrConflict, http.StatusConflict, "has_bookings"},
    {repository.ErrRefreshInvalid, http.StatusUnauthorized, "invalid_refresh"},
    {utils.ErrPasswordTooLong, http.StatusBadRequest, "password_too_long"},

    {model.ErrInvalidSeatCount, http.StatusBadRequest, "invalid_seat_count"},
    {model.ErrInvalidWindow, http.StatusBadRequest, "invalid_time_window"},
    {model.ErrOutsideParent, http.StatusBadRequest, "outside_parent_window"},
    {model.ErrNoExternalForm, http.StatusBadRequest, "no_external_form"},
    {model.ErrSoldOut, http.StatusConflict, "sold_out"},
    {model.ErrNotBookable, http.StatusConflict, "not_bookable"},
    {model.ErrEventStarted, http.StatusConflict, "event_started"},
    {model.ErrAlreadyBooked, http.StatusConflict, "already_booked"},
    {model.ErrParentUnpaid, http.StatusConflict, "parent_booking_required"},
    {model.ErrBookingNotActive, http.StatusConflict, "booking_not_active"},
    {model.ErrHasCheckins, http.StatusConflict, "has_checkins"},
    {model.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
    {model.ErrSeatsBelowBooked, http.StatusConflict, "seats_below_booked"},
    {model.ErrAlreadyReviewed, http.StatusConflict, "already_reviewed"},
    {model.ErrAlreadyCheckedIn, http.StatusConflict, "already_checked_in"},
    {model.ErrTicketCancelled, http.StatusConflict, "ticket_cancelled"},
    {model.ErrEventCancelled, http.StatusConflict, "event_cancelled"},
    {model.ErrBookingUnpaid, http.StatusConflict, "booking_unpaid"},
    {model.ErrCheckinTooEarly, http.StatusConflict, "checkin_not_open"},
    {model.ErrCheckinClosed, http.StatusConflict, "checkin_closed"},

    {utils.ErrInvalidToken, http.StatusBadRequest, "invalid_ticket_payload"},
    {payments.ErrBadSignature, http.StatusUnauthorized, "invalid_signature"},
    {payments.ErrBadPayload, http.StatusBadRequest, "invalid_payload"},
    {sheets.ErrNotConfigured, http.StatusServiceUnavailable, "import_not_configured"},
}

func lookupError(err error) (errorMapping, bool) {
    for _, m := range domainErrors {
        if errors.Is(err, m.target) {
            return m, true
        }
    }
    return errorMapping{}, false
}

// body renders the JSON error, adding the details some errors carry.
func (m errorMapping) body(err error) echo.Map {
    out := echo.Map{"error": m.code, "message": m.target.Error()}
    var so *repository.SoldOutError
    if errors.As(err, &so) {
        out["seats_left"] = so.SeatsLeft
    }
    var ac *repository.AlreadyCheckedInError
    if errors.As(err, &ac) {
        out["checked_in_at"] = ac.At.UTC().Format(time.RFC3339)
    }
    return out
}
