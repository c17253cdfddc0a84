package model

import (
    "errors"
    "time"
)

var ErrOutsideParent = errors.New("session must fall within the parent event")

// SubEvent is a session under a parent event.  When Bookable is false the
// seat fields are ignored and the session is informational agenda.
type SubEvent struct {
    ID          uint64    `json:"id"`
    EventID     uint64    `json:"event_id"`
    Title       string    `json:"title"`
    Description string    `json:"description"`
    Venue       string    `json:"venue"`
    StartsAt    time.Time `json:"starts_at"`
    EndsAt      time.Time `json:"ends_at"`
    Bookable    bool      `json:"bookable"`
    TotalSeats  uint32    `json:"total_seats"`
    SeatsBooked uint32    `json:"seats_booked"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}

// SeatsLeft returns the free seats of a bookable session.
func (s SubEvent) SeatsLeft() uint32 {
    if !s.Bookable || s.SeatsBooked >= s.TotalSeats {
        return 0
    }
    return s.TotalSeats - s.SeatsBooked
}

// ValidateWithin checks the session window against its parent.
func (s SubEvent) ValidateWithin(parent Event) error {
    if err := ValidateWindow(s.StartsAt, s.EndsAt); err != nil {
        return err
    }
    if s.StartsAt.Before(parent.StartsAt) || s.EndsAt.After(parent.EndsAt) {
        return ErrOutsideParent
    }
    return nil
}
