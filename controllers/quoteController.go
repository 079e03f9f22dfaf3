package controllers

import (
	"errors"

	"fencing-backend/middlewares"
	"fencing-backend/models"
	"fencing-backend/services"

	"github.com/gofiber/fiber/v2"
)

type quoteStatusInput struct {
	Status models.QuoteStatus `json:"status" validate:"required,oneof=DRAFT SENT APPROVED REJECTED CONVERTED"`
}

func (h *Handler) GetQuotes(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	quotes, total, err := h.Quotes.List(c.UserContext(), services.QuoteFilter{
		Status:     c.Query("status"),
		CustomerID: c.Query("customerId"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"quotes": quotes, "total": total})
}

func (h *Handler) GetQuote(c *fiber.Ctx) error {
	quote, err := h.Quotes.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(quote)
}

func (h *Handler) CreateQuote(c *fiber.Ctx) error {
	var in services.CreateQuoteInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	quote, err := h.Quotes.Create(c.UserContext(), in, middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(quote)
}

func (h *Handler) UpdateQuoteStatus(c *fiber.Ctx) error {
	var in quoteStatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	quote, err := h.Quotes.UpdateStatus(c.UserContext(), c.Params("id"), in.Status, middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(quote)
}

func (h *Handler) DeleteQuote(c *fiber.Ctx) error {
	if err := h.Quotes.Delete(c.UserContext(), c.Params("id"), middlewares.CurrentActor(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ConvertQuoteToInvoice(c *fiber.Ctx) error {
	invoice, err := h.Quotes.ConvertToInvoice(c.UserContext(), c.Params("id"), middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// EmailQuote reports a missing customer address as a soft failure instead of an error.
func (h *Handler) EmailQuote(c *fiber.Ctx) error {
	err := h.Quotes.EmailQuote(c.UserContext(), c.Params("id"), middlewares.CurrentActor(c))
	if errors.Is(err, services.ErrCustomerNoEmail) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
