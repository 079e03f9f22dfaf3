package controllers

import (
	"context"
	"time"

	"fencing-backend/middlewares"
	"fencing-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type taxInput struct {
	Name string          `json:"name" validate:"required,max=50"`
	Rate decimal.Decimal `json:"rate"`
}

func (h *Handler) GetTaxSettings(c *fiber.Ctx) error {
	cfg, err := h.Tax.Current(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cfg)
}

func (h *Handler) UpdateTaxSettings(c *fiber.Ctx) error {
	var in taxInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	cfg, err := h.Tax.Update(c.UserContext(), in.Name, in.Rate)
	if err != nil {
		return err
	}

	actor := middlewares.CurrentActor(c)
	h.Audit.Record(c.UserContext(), services.AuditEntry{
		Action:      services.ActionTaxUpdated,
		EntityType:  "TaxConfig",
		EntityID:    cfg.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"name": cfg.Name, "rate": cfg.Rate.String()},
	})
	return c.JSON(cfg)
}

func (h *Handler) GetAuditLogs(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	logs, total, err := h.Audit.List(c.UserContext(), services.AuditFilter{
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		Action:     c.Query("action"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"logs": logs, "total": total})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "database": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
