package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestCheckCheckin(t *testing.T) {
    start := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)
    ctx := CheckinContext{
        EventStatus:   EventApproved,
        BookingStatus: BookingConfirmed,
        StartsAt:      start,
        EndsAt:        start.Add(3 * time.Hour),
        OpensBefore:   time.Hour,
    }
    tk := Ticket{Status: TicketValid}

    assert.NoError(t, tk.CheckCheckin(ctx, start.Add(-30*time.Minute)))
    assert.ErrorIs(t, tk.CheckCheckin(ctx, start.Add(-2*time.Hour)), ErrCheckinTooEarly)
    assert.ErrorIs(t, tk.CheckCheckin(ctx, start.Add(4*time.Hour)), ErrCheckinClosed)

    at := start
    done := tk
    done.CheckedInAt = &at
    assert.ErrorIs(t, done.CheckCheckin(ctx, start), ErrAlreadyCheckedIn)

    cancelled := tk
    cancelled.Status = TicketCancelled
    assert.ErrorIs(t, cancelled.CheckCheckin(ctx, start), ErrTicketCancelled)

    pending := ctx
    pending.BookingStatus = BookingPending
    assert.ErrorIs(t, tk.CheckCheckin(pending, start), ErrBookingUnpaid)

    gone := ctx
    gone.EventStatus = EventCancelled
    assert.ErrorIs(t, tk.CheckCheckin(gone, start), ErrEventCancelled)
    assert.ErrorIs(t, done.CheckCheckin(gone, start), ErrEventCancelled, "cancellation wins over a prior scan")

    review := ctx
    review.EventStatus = EventPending
    assert.NoError(t, tk.CheckCheckin(review, start), "tickets survive an edit that sends the event back to review")
}

func TestExternalReview(t *testing.T) {
    r := ExternalRegistration{Status: ExternalUnverified}
    assert.NoError(t, r.CheckReview(ExternalVerified))
    assert.ErrorIs(t, r.CheckReview("MAYBE"), ErrInvalidTransition)
    r.Status = ExternalRejected
    assert.ErrorIs(t, r.CheckReview(ExternalVerified), ErrAlreadyReviewed)
}

func TestNormalizeRole(t *testing.T) {
    assert.Equal(t, RoleCollege, NormalizeRole("COLLEGE"))
    assert.Equal(t, RoleStudent, NormalizeRole("ADMIN"))
    assert.Equal(t, RoleStudent, NormalizeRole(""))
}
