// Package service holds background and outbound integrations shared by the
// HTTP handlers: the RabbitMQ publisher and the booking expiry sweeper.
package service

import (
    "context"
    "encoding/json"
    "time"

    "github.com/labstack/echo/v4"
    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/campus-events/internal/queue"
)

// EventPublisher publishes domain events.  Failures are logged and
// returned so callers can ignore them without interrupting the request.
type EventPublisher interface {
    BookingConfirmed(ctx context.Context, ev q.BookingConfirmedEvent) error
    TicketCheckedIn(ctx context.Context, ev q.TicketCheckedInEvent) error
}

// Publisher dials RabbitMQ per message.  Publishing is rare (one message
// per booking or scan), so no connection is kept open between requests.
type Publisher struct {
    URL    string
    Logger echo.Logger
}

func NewPublisher(url string, logger echo.Logger) *Publisher {
    return &Publisher{URL: url, Logger: logger}
}

func (p *Publisher) BookingConfirmed(ctx context.Context, ev q.BookingConfirmedEvent) error {
    return p.publish(ctx, q.BookingConfirmedQueue, ev)
}

func (p *Publisher) TicketCheckedIn(ctx context.Context, ev q.TicketCheckedInEvent) error {
    return p.publish(ctx, q.TicketCheckedInQueue, ev)
}

// publish marshals v and sends it to the named durable queue as a
// persistent message.
func (p *Publisher) publish(ctx context.Context, queue string, v interface{}) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        p.Logger.Warnf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Logger.Warnf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        p.Logger.Warnf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(v)
    if err != nil {
        p.Logger.Warnf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
        p.Logger.Warnf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}

// PublishAsync runs fn in the background with its own timeout so a slow
// broker never delays an HTTP response.
func PublishAsync(fn func(ctx context.Context) error) {
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = fn(ctx)
    }()
}
