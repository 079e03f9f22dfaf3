package controllers

import (
	"errors"
	"fmt"

	"fencing-backend/auth"
	"fencing-backend/services"
	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler carries the dependencies of every HTTP endpoint.
type Handler struct {
	DB       *gorm.DB
	Sessions *auth.SessionManager
	Cookie   CookieConfig
	Logger   *zap.Logger

	Audit    *services.AuditLogger
	Users    *services.UserService
	Tax      *services.TaxService
	Quotes   *services.QuoteService
	Invoices *services.InvoiceService
	Payments *services.PaymentService
	Jobs     *services.JobService
	Webhooks services.WebhookVerifier
}

// findByID loads one row into dst, mapping a missing row to services.ErrNotFound.
func (h *Handler) findByID(c *fiber.Ctx, dst any, entity string) error {
	return notFound(entity, h.DB.WithContext(c.UserContext()).First(dst, "id = ?", c.Params("id")).Error)
}

func notFound(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", entity, services.ErrNotFound)
	}
	return err
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

func pageParams(c *fiber.Ctx) (limit, offset int) {
	return utils.ParseIntDefault(c.Query("limit"), 50), utils.ParseIntDefault(c.Query("offset"), 0)
}
