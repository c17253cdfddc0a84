// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into notifications.
package queue

// Queue names.  Each queue is durable and addressed through the default
// exchange.
const (
    BookingConfirmedQueue = "booking.confirmed"
    TicketCheckedInQueue  = "ticket.checked_in"
)

// BookingConfirmedEvent is published when a booking is confirmed, either at
// once for free events or after payment.  It contains enough information for
// downstream consumers to log and notify without querying the primary
// database.
type BookingConfirmedEvent struct {
    BookingID     uint64   `json:"booking_id"`
    UserID        uint64   `json:"user_id"`
    UserEmail     string   `json:"user_email"`
    UserName      string   `json:"user_name"`
    EventID       uint64   `json:"event_id"`
    EventTitle    string   `json:"event_title"`
    SubEventID    *uint64  `json:"sub_event_id,omitempty"`
    SubEventTitle string   `json:"sub_event_title,omitempty"`
    Venue         string   `json:"venue"`
    StartsAt      string   `json:"starts_at"`
    Seats         uint32   `json:"seats"`
    TicketCodes   []string `json:"ticket_codes"`
    AmountCents   uint32   `json:"amount_cents"`
    ConfirmedAt   string   `json:"confirmed_at"`
}

// TicketCheckedInEvent is published for every successful door scan.
type TicketCheckedInEvent struct {
    TicketID    uint64  `json:"ticket_id"`
    BookingID   uint64  `json:"booking_id"`
    EventID     uint64  `json:"event_id"`
    SubEventID  *uint64 `json:"sub_event_id,omitempty"`
    UserID      uint64  `json:"user_id"`
    SeatNo      uint32  `json:"seat_no"`
    ScannedBy   uint64  `json:"scanned_by"`
    CheckedInAt string  `json:"checked_in_at"`
}
