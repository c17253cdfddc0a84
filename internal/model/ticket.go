package model

import (
    "errors"
    "time"
)

const (
    TicketValid     = "VALID"
    TicketCancelled = "CANCELLED"
)

var (
    ErrTicketCancelled  = errors.New("ticket cancelled")
    ErrEventCancelled   = errors.New("event cancelled")
    ErrBookingUnpaid    = errors.New("booking is not confirmed")
    ErrCheckinTooEarly  = errors.New("check-in has not opened yet")
    ErrCheckinClosed    = errors.New("event is over")
    ErrAlreadyCheckedIn = errors.New("ticket already checked in")
)

// Ticket is one seat of a booking.  Code is the opaque identifier carried
// by the QR payload; CheckedInAt is set exactly once.
type Ticket struct {
    ID          uint64     `json:"id"`
    BookingID   uint64     `json:"booking_id"`
    EventID     uint64     `json:"event_id"`
    SubEventID  *uint64    `json:"sub_event_id,omitempty"`
    UserID      uint64     `json:"user_id"`
    SeatNo      uint32     `json:"seat_no"`
    Code        string     `json:"code"`
    Status      string     `json:"status"`
    CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
    CheckedInBy *uint64    `json:"-"`
    CreatedAt   time.Time  `json:"created_at"`
}

// CheckinContext carries the state a check-in decision depends on.
type CheckinContext struct {
    EventStatus   string
    BookingStatus string
    StartsAt      time.Time
    EndsAt        time.Time
    OpensBefore   time.Duration
}

// CheckCheckin decides whether a ticket can be admitted at now.
func (t Ticket) CheckCheckin(c CheckinContext, now time.Time) error {
    if c.EventStatus == EventCancelled {
        return ErrEventCancelled
    }
    if t.Status == TicketCancelled {
        return ErrTicketCancelled
    }
    if c.BookingStatus != BookingConfirmed {
        return ErrBookingUnpaid
    }
    if t.CheckedInAt != nil {
        return ErrAlreadyCheckedIn
    }
    if now.Before(c.StartsAt.Add(-c.OpensBefore)) {
        return ErrCheckinTooEarly
    }
    if now.After(c.EndsAt) {
        return ErrCheckinClosed
    }
    return nil
}
