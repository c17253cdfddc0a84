package stub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentLink(t *testing.T) {
	p := New("s3cret", "https://events.example.edu/")
	link, err := p.CreatePayment(context.Background(), "inv_abc", 1500)
	require.NoError(t, err)
	assert.Equal(t, "https://events.example.edu/v1/payments/stub?invoice=inv_abc", link)
}

func TestParseWebhook(t *testing.T) {
	p := New("s3cret", "")
	body := []byte(`{"invoice":"inv_abc","status":"Canceled"}`)

	inv, status, err := p.ParseWebhook(context.Background(), body, map[string]string{"x-signature": p.Sign(body)})
	require.NoError(t, err)
	assert.Equal(t, "inv_abc", inv)
	assert.Equal(t, "cancelled", status)

	_, _, err = p.ParseWebhook(context.Background(), body, map[string]string{"x-signature": "00"})
	assert.ErrorIs(t, err, ErrBadSignature)

	bad := []byte(`{"invoice":"inv_abc","status":"refunded"}`)
	_, _, err = p.ParseWebhook(context.Background(), bad, map[string]string{"x-signature": p.Sign(bad)})
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestParseWebhookRequiresSecret(t *testing.T) {
	p := New("", "")
	body := []byte(`{"invoice":"inv_abc"}`)
	_, _, err := p.ParseWebhook(context.Background(), body, map[string]string{"x-signature": p.Sign(body)})
	assert.ErrorIs(t, err, ErrBadSignature)
}
