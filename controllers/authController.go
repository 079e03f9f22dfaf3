package controllers

import (
	"time"

	"fencing-backend/middlewares"
	"fencing-backend/services"

	"github.com/gofiber/fiber/v2"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var in loginInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	token, user, err := h.Users.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.Cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.Sessions.TTL()),
		HTTPOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "success"})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	sess, ok := middlewares.CurrentSession(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return c.JSON(sess)
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.Users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var in services.CreateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.Users.Create(c.UserContext(), in, middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	var in services.UpdateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.Users.Update(c.UserContext(), c.Params("id"), in, middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}
