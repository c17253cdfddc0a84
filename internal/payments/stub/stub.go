// Package stub is a development payment provider.  Its checkout link
// points back at this service and its webhook is signed with the shared
// PAYMENT_WEBHOOK_SECRET (HMAC SHA-256 hex in X-Signature).
package stub

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/utils"
)

type Provider struct {
	secret  string
	baseURL string
}

func New(secret, baseURL string) *Provider {
	return &Provider{secret: secret, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *Provider) Name() string { return "stub" }

func (p *Provider) CreatePayment(ctx context.Context, invoice string, amountCents uint32) (string, error) {
	link := "/v1/payments/stub?invoice=" + url.QueryEscape(invoice)
	if p.baseURL != "" {
		link = p.baseURL + link
	}
	return link, nil
}

type webhookPayload struct {
	Invoice string `json:"invoice"`
	Status  string `json:"status"` // paid/cancelled
}

// Sign returns the signature the webhook expects for body.
func (p *Provider) Sign(body []byte) string { return utils.HMACSHA256Hex(p.secret, string(body)) }

func (p *Provider) ParseWebhook(ctx context.Context, body []byte, headers map[string]string) (string, string, error) {
	if p.secret == "" || !utils.VerifyHMACSHA256Hex(p.secret, string(body), headers["x-signature"]) {
		return "", "", ErrBadSignature
	}
	var pl webhookPayload
	if err := json.Unmarshal(body, &pl); err != nil {
		return "", "", errors.Wrap(ErrBadPayload, err.Error())
	}
	pl.Invoice = strings.TrimSpace(pl.Invoice)
	if pl.Invoice == "" {
		return "", "", ErrBadPayload
	}
	status := strings.ToLower(strings.TrimSpace(pl.Status))
	switch status {
	case "", "paid":
		status = "paid"
	case "cancelled", "canceled":
		status = "cancelled"
	default:
		return "", "", ErrBadPayload
	}
	return pl.Invoice, status, nil
}

var (
	ErrBadSignature = errors.New("invalid signature")
	ErrBadPayload   = errors.New("invalid webhook payload")
)
