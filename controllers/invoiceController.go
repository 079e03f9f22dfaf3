package controllers

import (
	"time"

	"fencing-backend/middlewares"
	"fencing-backend/models"
	"fencing-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type invoiceStatusInput struct {
	Status models.InvoiceStatus `json:"status" validate:"required,eq=CANCELLED"`
}

type paymentInput struct {
	Amount    decimal.Decimal    `json:"amount"`
	Method    string             `json:"method" validate:"required,max=32"`
	Reference string             `json:"reference" validate:"max=255"`
	Type      models.PaymentType `json:"type" validate:"omitempty,oneof=DEPOSIT BALANCE MANUAL"`
	Note      string             `json:"note" validate:"max=1000"`
	PaidAt    *time.Time         `json:"paidAt"`
}

func (h *Handler) GetInvoices(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	invoices, total, err := h.Invoices.List(c.UserContext(), services.InvoiceFilter{
		Status:     c.Query("status"),
		CustomerID: c.Query("customerId"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invoices": invoices, "total": total})
}

func (h *Handler) GetInvoice(c *fiber.Ctx) error {
	invoice, err := h.Invoices.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(invoice)
}

// UpdateInvoiceStatus only cancels; payment statuses follow recorded payments.
func (h *Handler) UpdateInvoiceStatus(c *fiber.Ctx) error {
	var in invoiceStatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	invoice, err := h.Invoices.Cancel(c.UserContext(), c.Params("id"), middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(invoice)
}

// CreateCheckout is public: the payment portal link carries only the invoice id.
func (h *Handler) CreateCheckout(c *fiber.Ctx) error {
	checkout, err := h.Payments.CreateDepositCheckout(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(checkout)
}

func (h *Handler) ListPayments(c *fiber.Ctx) error {
	payments, err := h.Payments.ListPayments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"payments": payments})
}

func (h *Handler) CreatePayment(c *fiber.Ctx) error {
	var in paymentInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	pi := services.PaymentInput{
		InvoiceID: c.Params("id"),
		Amount:    in.Amount,
		Method:    in.Method,
		Reference: in.Reference,
		Type:      in.Type,
		Note:      in.Note,
	}
	if in.PaidAt != nil {
		pi.PaidAt = *in.PaidAt
	}

	payment, duplicate, err := h.Payments.RecordPayment(c.UserContext(), pi, middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	if duplicate {
		return c.JSON(fiber.Map{"payment": payment, "duplicate": true})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment, "duplicate": false})
}
