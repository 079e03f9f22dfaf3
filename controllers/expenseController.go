package controllers

import (
	"time"

	"fencing-backend/middlewares"
	"fencing-backend/models"
	"fencing-backend/services"
	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type expenseInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Category    string          `json:"category" validate:"max=64"`
	Amount      decimal.Decimal `json:"amount"`
	Vendor      string          `json:"vendor" validate:"max=200"`
	IncurredOn  *time.Time      `json:"incurredOn"`
}

type expensePatch struct {
	Description *string          `json:"description" validate:"omitempty,min=1,max=500"`
	Category    *string          `json:"category" validate:"omitempty,max=64"`
	Amount      *decimal.Decimal `json:"amount"`
	Vendor      *string          `json:"vendor" validate:"omitempty,max=200"`
	IncurredOn  *time.Time       `json:"incurredOn"`
}

func positiveAmount(d *decimal.Decimal) error {
	if d != nil && !d.IsPositive() {
		return &services.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	return nil
}

func (h *Handler) recordExpenseChange(c *fiber.Ctx, id, op string) {
	actor := middlewares.CurrentActor(c)
	h.Audit.Record(c.UserContext(), services.AuditEntry{
		Action:      services.ActionExpenseChanged,
		EntityType:  "Expense",
		EntityID:    id,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"op": op},
	})
}

func (h *Handler) GetExpenses(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext())
	if cat := c.Query("category"); cat != "" {
		q = q.Where("category = ?", cat)
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		q = q.Where("incurred_on >= ?", from)
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		q = q.Where("incurred_on < ?", to.AddDate(0, 0, 1))
	}
	var expenses []models.Expense
	if err := q.Order("incurred_on DESC").Find(&expenses).Error; err != nil {
		return err
	}

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return c.JSON(fiber.Map{"expenses": expenses, "total": total})
}

func (h *Handler) GetExpense(c *fiber.Ctx) error {
	var e models.Expense
	if err := h.findByID(c, &e, "expense"); err != nil {
		return err
	}
	return c.JSON(e)
}

func (h *Handler) CreateExpense(c *fiber.Ctx) error {
	var in expenseInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}
	if err := positiveAmount(&in.Amount); err != nil {
		return err
	}

	e := models.Expense{
		Description: in.Description,
		Category:    in.Category,
		Amount:      in.Amount,
		Vendor:      in.Vendor,
		IncurredOn:  time.Now().UTC(),
		CreatedBy:   middlewares.CurrentActor(c).UserID,
	}
	if in.IncurredOn != nil {
		e.IncurredOn = *in.IncurredOn
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&e).Error; err != nil {
		return err
	}
	h.recordExpenseChange(c, e.ID, "create")
	return c.Status(fiber.StatusCreated).JSON(e)
}

func (h *Handler) UpdateExpense(c *fiber.Ctx) error {
	var e models.Expense
	if err := h.findByID(c, &e, "expense"); err != nil {
		return err
	}
	var in expensePatch
	if err := middlewares.BindPatch(c, &in); err != nil {
		return err
	}
	if err := positiveAmount(in.Amount); err != nil {
		return err
	}
	if updates := utils.UpdatesFromPtrDTO(&in); len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(&e).Updates(updates).Error; err != nil {
			return err
		}
		h.recordExpenseChange(c, e.ID, "update")
	}
	return c.JSON(e)
}

func (h *Handler) DeleteExpense(c *fiber.Ctx) error {
	var e models.Expense
	if err := h.findByID(c, &e, "expense"); err != nil {
		return err
	}
	if err := h.DB.WithContext(c.UserContext()).Delete(&e).Error; err != nil {
		return err
	}
	h.recordExpenseChange(c, e.ID, "delete")
	return c.SendStatus(fiber.StatusNoContent)
}
