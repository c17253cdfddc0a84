// Package payments abstracts the payment gateway that settles paid
// bookings.  Providers create a checkout link for an invoice and later
// report its outcome through a signed webhook.
package payments

import (
	"context"

	"github.com/iliyamo/campus-events/internal/payments/stub"
)

// Webhook outcomes.
const (
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Errors shared by every provider.
var (
	ErrBadSignature = stub.ErrBadSignature
	ErrBadPayload   = stub.ErrBadPayload
)

// Provider is implemented by each payment gateway integration.
type Provider interface {
	Name() string

	// CreatePayment returns the URL the student follows to pay invoice.
	CreatePayment(ctx context.Context, invoice string, amountCents uint32) (payURL string, err error)

	// ParseWebhook validates a gateway callback and returns the invoice and
	// its outcome (StatusPaid or StatusCancelled).
	ParseWebhook(ctx context.Context, body []byte, headers map[string]string) (invoice, status string, err error)
}
