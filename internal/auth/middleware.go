package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LocalAccountID is the fiber locals key holding the authenticated account.
const LocalAccountID = "account_id"

// JWTMiddleware validates bearer tokens and stores the account id in locals.
func JWTMiddleware(secret string) fiber.Handler {
	tokens := NewService(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		accountID, err := tokens.ValidateToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(LocalAccountID, accountID)
		return c.Next()
	}
}

// Middleware returns JWTMiddleware when required is set and a pass-through
// handler otherwise.
func Middleware(secret string, required bool) fiber.Handler {
	if required {
		return JWTMiddleware(secret)
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
