package model

import (
    "errors"
    "fmt"
    "time"
)

// Booking statuses.  PENDING bookings hold seats until paid or expired.
const (
    BookingPending   = "PENDING"
    BookingConfirmed = "CONFIRMED"
    BookingCancelled = "CANCELLED"
    BookingExpired   = "EXPIRED"
)

var (
    ErrInvalidSeatCount = errors.New("invalid seat count")
    ErrSoldOut          = errors.New("not enough seats left")
    ErrNotBookable      = errors.New("event is not open for booking")
    ErrEventStarted     = errors.New("event already started")
    ErrAlreadyBooked    = errors.New("an active booking already exists")
    ErrBookingNotActive = errors.New("booking is no longer active")
    ErrHasCheckins      = errors.New("booking has checked-in tickets")
    ErrParentUnpaid     = errors.New("a confirmed booking for the parent event is required")
)

// Booking is a student's reservation of seats for an event or, when
// SubEventID is set, for a bookable session of that event.
type Booking struct {
    ID          uint64     `json:"id"`
    UserID      uint64     `json:"user_id"`
    EventID     uint64     `json:"event_id"`
    SubEventID  *uint64    `json:"sub_event_id,omitempty"`
    Seats       uint32     `json:"seats"`
    Status      string     `json:"status"`
    AmountCents uint32     `json:"amount_cents"`
    PaymentRef  *string    `json:"payment_ref,omitempty"`
    ExpiresAt   *time.Time `json:"expires_at,omitempty"`
    CreatedAt   time.Time  `json:"created_at"`
    UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActiveStatus reports whether a booking in status s still holds seats.
func IsActiveStatus(s string) bool { return s == BookingPending || s == BookingConfirmed }

// ActiveKey is the uniqueness key of a live booking: one per student and
// seat pool.
func ActiveKey(userID, eventID uint64, subEventID *uint64) string {
    if subEventID != nil {
        return fmt.Sprintf("%d:%d:%d", userID, eventID, *subEventID)
    }
    return fmt.Sprintf("%d:%d", userID, eventID)
}

// CheckSeatRequest validates a requested seat count against the per-booking
// maximum and the seats still free in the pool.
func CheckSeatRequest(requested, max int, left uint32) error {
    if requested < 1 || requested > max {
        return ErrInvalidSeatCount
    }
    if uint32(requested) > left {
        return ErrSoldOut
    }
    return nil
}

// CheckBookable verifies that an event accepts new bookings at now.
func CheckBookable(e Event, now time.Time) error {
    if e.Status != EventApproved {
        return ErrNotBookable
    }
    if e.Started(now) {
        return ErrEventStarted
    }
    return nil
}

// CheckSubEventBookable verifies that a session accepts new bookings.
func CheckSubEventBookable(parent Event, s SubEvent, now time.Time) error {
    if err := CheckBookable(parent, now); err != nil {
        return err
    }
    if !s.Bookable {
        return ErrNotBookable
    }
    if !now.Before(s.StartsAt) {
        return ErrEventStarted
    }
    return nil
}

// InitialBookingStatus returns the status and hold expiry for a new
// booking.  Free bookings confirm immediately; paid ones wait for payment.
func InitialBookingStatus(amountCents uint32, now time.Time, ttl time.Duration) (string, *time.Time) {
    if amountCents == 0 {
        return BookingConfirmed, nil
    }
    exp := now.Add(ttl).UTC()
    return BookingPending, &exp
}

// CheckCancellable verifies a student may cancel the booking at now.
func CheckCancellable(b Booking, eventStart time.Time, checkedIn int, now time.Time) error {
    if !IsActiveStatus(b.Status) {
        return ErrBookingNotActive
    }
    if !now.Before(eventStart) {
        return ErrEventStarted
    }
    if checkedIn > 0 {
        return ErrHasCheckins
    }
    return nil
}
