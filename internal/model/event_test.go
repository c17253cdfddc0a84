package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestEventTransitions(t *testing.T) {
    cases := []struct {
        from, to string
        ok       bool
    }{
        {EventDraft, EventPending, true},
        {EventDraft, EventApproved, false},
        {EventPending, EventApproved, true},
        {EventPending, EventRejected, true},
        {EventRejected, EventPending, true},
        {EventRejected, EventApproved, false},
        {EventApproved, EventCancelled, true},
        {EventCancelled, EventPending, false},
    }
    for _, c := range cases {
        assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
    }
}

func TestTransitionClearsRejectionReason(t *testing.T) {
    reason := "poster missing"
    e := Event{Status: EventRejected, RejectionReason: &reason}
    require.NoError(t, e.Transition(EventPending))
    assert.Nil(t, e.RejectionReason)
    assert.ErrorIs(t, e.Transition(EventCancelled), ErrInvalidTransition)
}

func TestSeatsLeft(t *testing.T) {
    assert.Equal(t, uint32(3), Event{TotalSeats: 10, SeatsBooked: 7}.SeatsLeft())
    assert.Equal(t, uint32(0), Event{TotalSeats: 5, SeatsBooked: 5}.SeatsLeft())
    assert.Equal(t, uint32(0), Event{TotalSeats: 5, SeatsBooked: 9}.SeatsLeft())
}

func TestValidateCapacity(t *testing.T) {
    e := Event{SeatsBooked: 4}
    assert.NoError(t, e.ValidateCapacity(4))
    assert.ErrorIs(t, e.ValidateCapacity(3), ErrSeatsBelowBooked)
}

func TestNeedsReview(t *testing.T) {
    start := time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)
    before := Event{Status: EventApproved, Title: "Hackathon", StartsAt: start, EndsAt: start.Add(time.Hour)}
    after := before
    after.PriceCents = 500
    assert.False(t, NeedsReview(before, after), "price change alone keeps approval")
    after.StartsAt = start.Add(time.Hour)
    assert.True(t, NeedsReview(before, after))
    before.Status = EventDraft
    assert.False(t, NeedsReview(before, after))
}

func TestSubEventWithinParent(t *testing.T) {
    start := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
    parent := Event{StartsAt: start, EndsAt: start.Add(8 * time.Hour)}
    s := SubEvent{StartsAt: start.Add(time.Hour), EndsAt: start.Add(2 * time.Hour)}
    assert.NoError(t, s.ValidateWithin(parent))
    s.EndsAt = start.Add(9 * time.Hour)
    assert.ErrorIs(t, s.ValidateWithin(parent), ErrOutsideParent)
    s.EndsAt = s.StartsAt
    assert.ErrorIs(t, s.ValidateWithin(parent), ErrInvalidWindow)
}
