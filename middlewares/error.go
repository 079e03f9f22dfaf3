package middlewares

import (
	"errors"

	"fencing-backend/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler maps service errors onto HTTP responses in one place.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			fe  *fiber.Error
			ve  validator.ValidationErrors
			sve *services.ValidationError
			de  *services.DomainError
			ce  *services.CollaboratorError
		)

		switch {
		case errors.As(err, &fe):
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})

		case errors.As(err, &ve):
			out := make(map[string]string, len(ve))
			for _, f := range ve {
				out[f.Field()] = f.Tag()
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  out,
			})

		case errors.As(err, &sve):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  fiber.Map{sve.Field: sve.Message},
			})

		case errors.Is(err, services.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})

		case errors.Is(err, services.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})

		case errors.Is(err, services.ErrAccountDisabled):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})

		case errors.As(err, &de):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": de.Message})

		case errors.As(err, &ce):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"error":   ce.Error(),
			})
		}

		logger.Error("internal error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
}
