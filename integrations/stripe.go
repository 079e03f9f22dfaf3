package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fencing-backend/models"
	"fencing-backend/services"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrPaymentsNotConfigured = errors.New("payment processor is not configured")

// StripeGateway opens hosted checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway returns a gateway; an empty secret key yields a gateway
// whose checkout calls fail with ErrPaymentsNotConfigured.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	g := &StripeGateway{webhookSecret: webhookSecret}
	if secretKey != "" {
		g.api = client.New(secretKey, nil)
	}
	return g
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req services.CheckoutRequest) (services.CheckoutSession, error) {
	if g.api == nil {
		return services.CheckoutSession{}, ErrPaymentsNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.InvoiceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(req.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		Metadata: req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return services.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return services.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// VerifyCheckoutEvent checks the Stripe-Signature header and extracts the paid
// amount from checkout.session.completed. Other event types return nil, nil.
func (g *StripeGateway) VerifyCheckoutEvent(payload []byte, signature string) (*services.CheckoutCompletion, error) {
	if g.webhookSecret == "" {
		return nil, ErrPaymentsNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	if event.Type != "checkout.session.completed" || event.Data == nil {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if sess.PaymentStatus != "" && sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, nil
	}

	invoiceID := sess.Metadata["invoiceId"]
	if invoiceID == "" {
		invoiceID = sess.ClientReferenceID
	}
	return &services.CheckoutCompletion{
		SessionID:   sess.ID,
		InvoiceID:   invoiceID,
		AmountMinor: sess.AmountTotal,
		Type:        models.PaymentType(sess.Metadata["type"]),
	}, nil
}
