package middlewares

import (
	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
)

var validate = utils.NewValidator()

// BindAndValidate parses the request body into dst and validates it as sent.
// Returns fiber.ErrBadRequest for parse errors and a validator.ValidationErrors for validation issues.
// Credentials go through here because their whitespace is significant.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := bind(c, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// BindInput is BindAndValidate for create DTOs: strings are trimmed and
// decimals rounded to cents before the rules run, so "  " fails required.
func BindInput(c *fiber.Ctx, dst interface{}) error {
	if err := bind(c, dst); err != nil {
		return err
	}
	utils.NormalizeDTO(dst)
	return validate.Struct(dst)
}

// BindPatch is BindInput for partial updates with pointer fields; absent
// fields stay nil and are skipped by omitempty rules.
func BindPatch(c *fiber.Ctx, dst interface{}) error {
	if err := bind(c, dst); err != nil {
		return err
	}
	utils.NormalizePtrDTO(dst)
	return validate.Struct(dst)
}

// ValidateStruct validates any struct value using the shared validator instance.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

func bind(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "request body is required")
	}
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
