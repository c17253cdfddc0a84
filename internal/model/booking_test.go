package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestCheckSeatRequest(t *testing.T) {
    assert.NoError(t, CheckSeatRequest(2, 10, 2))
    assert.ErrorIs(t, CheckSeatRequest(0, 10, 5), ErrInvalidSeatCount)
    assert.ErrorIs(t, CheckSeatRequest(11, 10, 50), ErrInvalidSeatCount)
    assert.ErrorIs(t, CheckSeatRequest(3, 10, 2), ErrSoldOut)
}

func TestCheckBookable(t *testing.T) {
    now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
    e := Event{Status: EventApproved, StartsAt: now.Add(time.Hour)}
    assert.NoError(t, CheckBookable(e, now))
    e.Status = EventPending
    assert.ErrorIs(t, CheckBookable(e, now), ErrNotBookable)
    e.Status = EventApproved
    e.StartsAt = now
    assert.ErrorIs(t, CheckBookable(e, now), ErrEventStarted)
}

func TestCheckSubEventBookable(t *testing.T) {
    now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
    parent := Event{Status: EventApproved, StartsAt: now.Add(time.Hour)}
    s := SubEvent{Bookable: true, StartsAt: now.Add(2 * time.Hour)}
    assert.NoError(t, CheckSubEventBookable(parent, s, now))
    s.Bookable = false
    assert.ErrorIs(t, CheckSubEventBookable(parent, s, now), ErrNotBookable)
}

func TestInitialBookingStatus(t *testing.T) {
    now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
    st, exp := InitialBookingStatus(0, now, time.Minute)
    assert.Equal(t, BookingConfirmed, st)
    assert.Nil(t, exp)
    st, exp = InitialBookingStatus(1500, now, 15*time.Minute)
    assert.Equal(t, BookingPending, st)
    if assert.NotNil(t, exp) {
        assert.Equal(t, now.Add(15*time.Minute), *exp)
    }
}

func TestActiveKey(t *testing.T) {
    sub := uint64(9)
    assert.Equal(t, "3:7", ActiveKey(3, 7, nil))
    assert.Equal(t, "3:7:9", ActiveKey(3, 7, &sub))
}

func TestCheckCancellable(t *testing.T) {
    now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
    b := Booking{Status: BookingConfirmed}
    assert.NoError(t, CheckCancellable(b, now.Add(time.Hour), 0, now))
    assert.ErrorIs(t, CheckCancellable(b, now, 0, now), ErrEventStarted)
    assert.ErrorIs(t, CheckCancellable(b, now.Add(time.Hour), 1, now), ErrHasCheckins)
    b.Status = BookingExpired
    assert.ErrorIs(t, CheckCancellable(b, now.Add(time.Hour), 0, now), ErrBookingNotActive)
}
