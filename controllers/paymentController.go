package controllers

import (
	"errors"

	"fencing-backend/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const signatureHeader = "Stripe-Signature"

// PaymentWebhook records payments confirmed by the processor. Authenticity
// comes from the signature header. Events that can never be applied (unknown
// invoice, closed invoice) are acknowledged so the processor stops redelivering;
// infrastructure failures return 500 so it retries.
func (h *Handler) PaymentWebhook(c *fiber.Ctx) error {
	completion, err := h.Webhooks.VerifyCheckoutEvent(c.Body(), c.Get(signatureHeader))
	if err != nil {
		h.Logger.Warn("rejected payment webhook", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "invalid webhook signature")
	}
	if completion == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	payment, duplicate, err := h.Payments.ConfirmCheckout(c.UserContext(), *completion)
	if err != nil {
		var (
			de *services.DomainError
			ve *services.ValidationError
		)
		if errors.As(err, &de) || errors.As(err, &ve) || errors.Is(err, services.ErrNotFound) {
			h.Logger.Warn("payment webhook not applied",
				zap.String("session_id", completion.SessionID),
				zap.String("invoice_id", completion.InvoiceID),
				zap.Error(err))
			return c.JSON(fiber.Map{"received": true, "applied": false, "reason": err.Error()})
		}
		return err
	}
	return c.JSON(fiber.Map{
		"received":  true,
		"applied":   !duplicate,
		"duplicate": duplicate,
		"paymentId": payment.ID,
	})
}
