package model

import (
    "errors"
    "time"
)

// Event statuses.  Only APPROVED events are visible to students.
const (
    EventDraft     = "DRAFT"
    EventPending   = "PENDING"
    EventApproved  = "APPROVED"
    EventRejected  = "REJECTED"
    EventCancelled = "CANCELLED"
)

var (
    ErrInvalidTransition = errors.New("invalid status transition")
    ErrInvalidWindow     = errors.New("ends_at must be after starts_at")
    ErrSeatsBelowBooked  = errors.New("total_seats cannot be lower than seats already booked")
)

// Event is a bookable listing created by a college and moderated by admins.
// SeatsBooked counts seats held by PENDING and CONFIRMED bookings.
type Event struct {
    ID              uint64    `json:"id"`
    CollegeID       uint64    `json:"college_id"`
    Title           string    `json:"title"`
    Description     string    `json:"description"`
    Category        string    `json:"category"`
    Venue           string    `json:"venue"`
    City            string    `json:"city"`
    Latitude        *float64  `json:"latitude,omitempty"`
    Longitude       *float64  `json:"longitude,omitempty"`
    StartsAt        time.Time `json:"starts_at"`
    EndsAt          time.Time `json:"ends_at"`
    TotalSeats      uint32    `json:"total_seats"`
    SeatsBooked     uint32    `json:"seats_booked"`
    PriceCents      uint32    `json:"price_cents"`
    PosterURL       *string   `json:"poster_url,omitempty"`
    RegistrationURL *string   `json:"registration_url,omitempty"`
    ExternalSheetID *string   `json:"-"`
    Status          string    `json:"status"`
    RejectionReason *string   `json:"rejection_reason,omitempty"`
    CreatedAt       time.Time `json:"created_at"`
    UpdatedAt       time.Time `json:"updated_at"`
}

// SeatsLeft returns the number of seats still available.
func (e Event) SeatsLeft() uint32 {
    if e.SeatsBooked >= e.TotalSeats {
        return 0
    }
    return e.TotalSeats - e.SeatsBooked
}

// IsFree reports whether bookings skip the payment step.
func (e Event) IsFree() bool { return e.PriceCents == 0 }

// Started reports whether the event has begun at now.
func (e Event) Started(now time.Time) bool { return !now.Before(e.StartsAt) }

// HasLocation reports whether both coordinates are known.
func (e Event) HasLocation() bool { return e.Latitude != nil && e.Longitude != nil }

// ValidateWindow checks the time window invariant.
func ValidateWindow(start, end time.Time) error {
    if !end.After(start) {
        return ErrInvalidWindow
    }
    return nil
}

// ValidateCapacity checks that a new seat total still covers booked seats.
func (e Event) ValidateCapacity(total uint32) error {
    if total < e.SeatsBooked {
        return ErrSeatsBelowBooked
    }
    return nil
}

// eventTransitions lists the moves allowed from each status.
var eventTransitions = map[string][]string{
    EventDraft:    {EventPending},
    EventPending:  {EventApproved, EventRejected},
    EventRejected: {EventPending},
    EventApproved: {EventCancelled, EventPending},
}

// CanTransition reports whether an event may move from one status to another.
func CanTransition(from, to string) bool {
    for _, s := range eventTransitions[from] {
        if s == to {
            return true
        }
    }
    return false
}

// Transition validates and applies a status change.
func (e *Event) Transition(to string) error {
    if !CanTransition(e.Status, to) {
        return ErrInvalidTransition
    }
    e.Status = to
    if to != EventRejected {
        e.RejectionReason = nil
    }
    return nil
}

// Editable reports whether the organizer may still change the listing.
// Cancelled events are frozen.
func (e Event) Editable() bool { return e.Status != EventCancelled }

// NeedsReview reports whether an edit of an approved event touched fields
// that students rely on, which sends it back to moderation.
func NeedsReview(before, after Event) bool {
    if before.Status != EventApproved {
        return false
    }
    return before.Title != after.Title ||
        before.Description != after.Description ||
        before.Venue != after.Venue ||
        !before.StartsAt.Equal(after.StartsAt) ||
        !before.EndsAt.Equal(after.EndsAt)
}
