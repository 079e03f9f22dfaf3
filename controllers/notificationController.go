package controllers

import (
	"time"

	"fencing-backend/middlewares"
	"fencing-backend/models"

	"github.com/gofiber/fiber/v2"
)

type notificationInput struct {
	UserID *string `json:"userId" validate:"omitempty,uuid"`
	Title  string  `json:"title" validate:"required,max=200"`
	Body   string  `json:"body" validate:"max=4000"`
}

// GetNotifications lists the caller's own notifications and broadcasts.
func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	sess, _ := middlewares.CurrentSession(c)
	q := h.DB.WithContext(c.UserContext()).Where("user_id = ? OR user_id IS NULL", sess.UserID)
	if c.Query("unread") == "true" {
		q = q.Where("read_at IS NULL")
	}
	var list []models.Notification
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notifications": list})
}

func (h *Handler) CreateNotification(c *fiber.Ctx) error {
	var in notificationInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}
	if in.UserID != nil {
		var user models.User
		if err := h.DB.WithContext(c.UserContext()).Select("id").First(&user, "id = ?", *in.UserID).Error; err != nil {
			return notFound("user", err)
		}
	}
	n := models.Notification{UserID: in.UserID, Title: in.Title, Body: in.Body}
	if err := h.DB.WithContext(c.UserContext()).Create(&n).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// MarkNotificationRead sets readAt. Broadcasts share one read state.
func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	sess, _ := middlewares.CurrentSession(c)
	var n models.Notification
	err := h.DB.WithContext(c.UserContext()).
		Where("id = ? AND (user_id = ? OR user_id IS NULL)", c.Params("id"), sess.UserID).
		First(&n).Error
	if err != nil {
		return notFound("notification", err)
	}
	if n.ReadAt == nil {
		now := time.Now().UTC()
		if err := h.DB.WithContext(c.UserContext()).Model(&n).Update("read_at", &now).Error; err != nil {
			return err
		}
	}
	return c.JSON(n)
}

func (h *Handler) DeleteNotification(c *fiber.Ctx) error {
	var n models.Notification
	if err := h.findByID(c, &n, "notification"); err != nil {
		return err
	}
	if err := h.DB.WithContext(c.UserContext()).Delete(&n).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
