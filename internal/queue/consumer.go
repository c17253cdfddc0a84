package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/campus-events/internal/mailer"
)

// Consumer listens to the booking.confirmed and ticket.checked_in queues,
// appends one line per message to <LogDir>/booking.log and sends the
// booking confirmation mail.
type Consumer struct {
    URL    string
    LogDir string
    Mailer mailer.Mailer
    Logger echo.Logger

    mu sync.Mutex // serializes writes to the log file
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s; a message
// that cannot be handled is rejected without requeue so the loop keeps
// going.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Logger.Warnf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Logger.Warnf("booking-consumer: consume loop ended: %v; reconnecting", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Logger.Warnf("booking-consumer: set QoS failed: %v", err)
    }

    booked, err := declareAndConsume(ch, BookingConfirmedQueue)
    if err != nil {
        return err
    }
    scanned, err := declareAndConsume(ch, TicketCheckedInQueue)
    if err != nil {
        return err
    }

    for {
        var d amqp.Delivery
        var ok bool
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-booked:
        case d, ok = <-scanned:
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }
        if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
            c.Logger.Errorf("booking-consumer: handle %s failed: %v", d.RoutingKey, err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
}

func declareAndConsume(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
    if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", name, err)
    }
    msgs, err := ch.Consume(name, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", name, err)
    }
    return msgs, nil
}

// Handle processes one message body from the named queue.
func (c *Consumer) Handle(ctx context.Context, queue string, body []byte) error {
    switch queue {
    case BookingConfirmedQueue:
        var ev BookingConfirmedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if err := c.appendLine(BookingConfirmedLine(ev)); err != nil {
            return err
        }
        if c.Mailer != nil && ev.UserEmail != "" {
            // the log line is already written; a mail failure must not
            // reject the message
            if err := c.Mailer.Send(ctx, ConfirmationMail(ev)); err != nil {
                c.Logger.Errorf("booking-consumer: mail booking %d: %v", ev.BookingID, err)
            }
        }
        return nil
    case TicketCheckedInQueue:
        var ev TicketCheckedInEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        return c.appendLine(CheckedInLine(ev))
    default:
        return fmt.Errorf("unknown queue %q", queue)
    }
}

func (c *Consumer) appendLine(line string) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    dir := c.LogDir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// BookingConfirmedLine formats the booking.log entry of a confirmation.
func BookingConfirmedLine(ev BookingConfirmedEvent) string {
    session := ""
    if ev.SubEventID != nil {
        session = fmt.Sprintf(" | sub_event_id=%d | session=%q", *ev.SubEventID, ev.SubEventTitle)
    }
    return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | event_id=%d | event=%q%s | seats=%d | total=%d cents | tickets=[%s]\n",
        ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.EventID, ev.EventTitle, session, ev.Seats, ev.AmountCents,
        strings.Join(ev.TicketCodes, ","))
}

// CheckedInLine formats the booking.log entry of a door scan.
func CheckedInLine(ev TicketCheckedInEvent) string {
    return fmt.Sprintf("[%s] Ticket checked in | ticket_id=%d | booking_id=%d | event_id=%d | user_id=%d | seat=%d | by=%d\n",
        ev.CheckedInAt, ev.TicketID, ev.BookingID, ev.EventID, ev.UserID, ev.SeatNo, ev.ScannedBy)
}

// ConfirmationMail renders the message sent to the student.
func ConfirmationMail(ev BookingConfirmedEvent) mailer.Message {
    title := ev.EventTitle
    if ev.SubEventTitle != "" {
        title += " / " + ev.SubEventTitle
    }
    var b strings.Builder
    fmt.Fprintf(&b, "Hi %s,\n\nYour booking #%d for %s is confirmed.\n", ev.UserName, ev.BookingID, title)
    fmt.Fprintf(&b, "When: %s\nWhere: %s\nSeats: %d\n", ev.StartsAt, ev.Venue, ev.Seats)
    if ev.AmountCents > 0 {
        fmt.Fprintf(&b, "Paid: %d.%02d\n", ev.AmountCents/100, ev.AmountCents%100)
    }
    b.WriteString("\nOpen My Bookings in the app to show your QR tickets at the entrance.\n")
    return mailer.Message{
        ToName:  ev.UserName,
        ToEmail: ev.UserEmail,
        Subject: "Booking confirmed: " + title,
        Text:    b.String(),
    }
}
