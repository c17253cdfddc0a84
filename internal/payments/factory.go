package payments

import (
	"fmt"

	"github.com/iliyamo/campus-events/internal/config"
	"github.com/iliyamo/campus-events/internal/payments/stub"
)

// NewProvider builds the provider selected by PAYMENT_PROVIDER.
func NewProvider(cfg config.PaymentConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "stub":
		return stub.New(cfg.WebhookSecret, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown payment provider: %s", cfg.Provider)
	}
}
