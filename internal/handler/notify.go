package handler

import (
    "context"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/queue"
    "github.com/iliyamo/campus-events/internal/repository"
    "github.com/iliyamo/campus-events/internal/service"
)

// Notifier turns booking and check-in outcomes into broker messages.  The
// lookups needed to build a message run in the background together with the
// publish, so they never delay a response.  A nil Notifier or Publisher
// disables publishing.
type Notifier struct {
    Publisher service.EventPublisher
    Users     *repository.UserRepo
    Events    *repository.EventRepo
    SubEvents *repository.SubEventRepo
    Logger    echo.Logger
    // Async runs fn; tests replace it to publish synchronously.
    Async func(fn func(ctx context.Context) error)
}

func NewNotifier(pub service.EventPublisher, users *repository.UserRepo, events *repository.EventRepo,
    subs *repository.SubEventRepo, logger echo.Logger) *Notifier {
    return &Notifier{Publisher: pub, Users: users, Events: events, SubEvents: subs, Logger: logger, Async: service.PublishAsync}
}

func (n *Notifier) enabled() bool { return n != nil && n.Publisher != nil }

// BookingConfirmed publishes booking.confirmed for a confirmed result.
func (n *Notifier) BookingConfirmed(res repository.BookingResult) {
    if !n.enabled() {
        return
    }
    n.Async(func(ctx context.Context) error {
        ev, err := n.bookingEvent(ctx, res)
        if err != nil {
            n.Logger.Warnf("notify: booking %d: %v", res.Booking.ID, err)
            return err
        }
        return n.Publisher.BookingConfirmed(ctx, ev)
    })
}

func (n *Notifier) bookingEvent(ctx context.Context, res repository.BookingResult) (queue.BookingConfirmedEvent, error) {
    b := res.Booking
    u, err := n.Users.GetByID(ctx, b.UserID)
    if err != nil {
        return queue.BookingConfirmedEvent{}, err
    }
    e, err := n.Events.GetByID(ctx, b.EventID)
    if err != nil {
        return queue.BookingConfirmedEvent{}, err
    }
    ev := queue.BookingConfirmedEvent{
        BookingID:   b.ID,
        UserID:      u.ID,
        UserEmail:   u.Email,
        UserName:    u.FullName,
        EventID:     e.ID,
        EventTitle:  e.Title,
        SubEventID:  b.SubEventID,
        Venue:       e.Venue,
        StartsAt:    e.StartsAt.UTC().Format(time.RFC3339),
        Seats:       b.Seats,
        AmountCents: b.AmountCents,
        ConfirmedAt: b.UpdatedAt.UTC().Format(time.RFC3339),
    }
    if b.SubEventID != nil {
        s, err := n.SubEvents.GetByID(ctx, *b.SubEventID)
        if err != nil {
            return ev, err
        }
        ev.SubEventTitle = s.Title
        ev.StartsAt = s.StartsAt.UTC().Format(time.RFC3339)
        if s.Venue != "" {
            ev.Venue = s.Venue
        }
    }
    ev.TicketCodes = make([]string, 0, len(res.Tickets))
    for _, t := range res.Tickets {
        ev.TicketCodes = append(ev.TicketCodes, t.Code)
    }
    return ev, nil
}

// TicketCheckedIn publishes ticket.checked_in for an admitted ticket.
func (n *Notifier) TicketCheckedIn(res repository.CheckinResult) {
    if !n.enabled() {
        return
    }
    t := res.Ticket
    ev := queue.TicketCheckedInEvent{
        TicketID:   t.ID,
        BookingID:  t.BookingID,
        EventID:    t.EventID,
        SubEventID: t.SubEventID,
        UserID:     t.UserID,
        SeatNo:     t.SeatNo,
    }
    if t.CheckedInBy != nil {
        ev.ScannedBy = *t.CheckedInBy
    }
    if t.CheckedInAt != nil {
        ev.CheckedInAt = t.CheckedInAt.UTC().Format(time.RFC3339)
    }
    n.Async(func(ctx context.Context) error {
        return n.Publisher.TicketCheckedIn(ctx, ev)
    })
}
