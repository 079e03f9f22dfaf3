package integrations

import (
	"context"
	"testing"
	"time"

	"fencing-backend/models"
	"fencing-backend/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signed(t *testing.T, body string, secret string) (string, []byte) {
	t.Helper()
	p := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return p.Header, p.Payload
}

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_test_abc",
    "object": "checkout.session",
    "amount_total": 10000,
    "payment_status": "paid",
    "metadata": {"invoiceId": "inv-123", "type": "DEPOSIT"}
  }}
}`

func TestVerifyCheckoutEvent(t *testing.T) {
	g := NewStripeGateway("", testWebhookSecret)
	header, payload := signed(t, completedEvent, testWebhookSecret)

	c, err := g.VerifyCheckoutEvent(payload, header)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, services.CheckoutCompletion{
		SessionID:   "cs_test_abc",
		InvoiceID:   "inv-123",
		AmountMinor: 10000,
		Type:        models.PaymentDeposit,
	}, *c)
}

func TestVerifyCheckoutEventRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway("", testWebhookSecret)
	header, payload := signed(t, completedEvent, "whsec_someone_else")

	c, err := g.VerifyCheckoutEvent(payload, header)
	assert.Error(t, err)
	assert.Nil(t, c)

	_, err = g.VerifyCheckoutEvent([]byte(completedEvent), "")
	assert.Error(t, err)
}

func TestVerifyCheckoutEventIgnoresOtherEvents(t *testing.T) {
	g := NewStripeGateway("", testWebhookSecret)
	header, payload := signed(t, `{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`, testWebhookSecret)

	c, err := g.VerifyCheckoutEvent(payload, header)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStripeGatewayWithoutKeys(t *testing.T) {
	g := NewStripeGateway("", "")

	_, err := g.CreateCheckoutSession(context.Background(), services.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrPaymentsNotConfigured)

	_, err = g.VerifyCheckoutEvent([]byte(completedEvent), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrPaymentsNotConfigured)
}
