// Package envelope writes the {success, ...} bodies every route returns.
package envelope

import (
	"backend-tripcal/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// OK writes {success:true} merged with fields.
func OK(c *fiber.Ctx, fields fiber.Map) error {
	return c.JSON(merge(true, fields))
}

// Fail writes {success:false, message}.
func Fail(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"success": false, "message": message})
}

// FailWith writes {success:false} merged with fields.
func FailWith(c *fiber.Ctx, fields fiber.Map) error {
	return c.JSON(merge(false, fields))
}

// Error reports domain failures as {success:false, message} and anything else
// as a 500.
func Error(c *fiber.Ctx, err error) error {
	if msg, ok := apperr.Message(err); ok {
		return Fail(c, msg)
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

func merge(success bool, fields fiber.Map) fiber.Map {
	out := fiber.Map{"success": success}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
