package controllers

import (
	"fencing-backend/middlewares"
	"fencing-backend/models"
	"fencing-backend/services"
	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type customerInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
}

type customerPatch struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

func (h *Handler) GetCustomers(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext()).Model(&models.Customer{})
	if search := c.Query("q"); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	var customers []models.Customer
	if err := q.Order("name").Find(&customers).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"customers": customers,
		"message":   "success",
	})
}

func (h *Handler) GetCustomer(c *fiber.Ctx) error {
	var customer models.Customer
	if err := h.findByID(c, &customer, "customer"); err != nil {
		return err
	}
	return c.JSON(customer)
}

func (h *Handler) CreateCustomer(c *fiber.Ctx) error {
	var in customerInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}

	customer := models.Customer{Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address}
	if err := h.DB.WithContext(c.UserContext()).Create(&customer).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

func (h *Handler) UpdateCustomer(c *fiber.Ctx) error {
	var customer models.Customer
	if err := h.findByID(c, &customer, "customer"); err != nil {
		return err
	}
	var in customerPatch
	if err := middlewares.BindPatch(c, &in); err != nil {
		return err
	}

	if updates := utils.UpdatesFromPtrDTO(&in); len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(&customer).Updates(updates).Error; err != nil {
			return err
		}
	}
	return c.JSON(customer)
}

// DeleteCustomer is admin-only. Customers referenced by quotes are kept.
func (h *Handler) DeleteCustomer(c *fiber.Ctx) error {
	var customer models.Customer
	if err := h.findByID(c, &customer, "customer"); err != nil {
		return err
	}

	db := h.DB.WithContext(c.UserContext())
	var quotes int64
	if err := db.Model(&models.FenceQuote{}).Where("customer_id = ?", customer.ID).Count(&quotes).Error; err != nil {
		return err
	}
	if quotes > 0 {
		return services.NewDomainError("customer has quotes and cannot be deleted")
	}
	if err := db.Delete(&customer).Error; err != nil {
		return err
	}

	actor := middlewares.CurrentActor(c)
	h.Audit.Record(c.UserContext(), services.AuditEntry{
		Action:      services.ActionCustomerDeleted,
		EntityType:  "Customer",
		EntityID:    customer.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"name": customer.Name},
	})
	return c.SendStatus(fiber.StatusNoContent)
}
