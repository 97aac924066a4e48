package account

import (
	"log/slog"

	"backend-tripcal/internal/shared/envelope"

	"github.com/gofiber/fiber/v2"
)

// TokenIssuer signs access tokens returned on signup and login.
type TokenIssuer interface {
	IssueToken(accountID string) (string, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, tokens TokenIssuer, authMiddleware fiber.Handler) {
	r.Post("/signup", func(c *fiber.Ctx) error {
		var req SignupRequest
		if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username and password required")
		}
		acc, err := svc.CreateAccount(c.Context(), req)
		if err != nil {
			return envelope.Error(c, err)
		}
		token, err := tokens.IssueToken(acc.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		slog.Info("account created", "account_id", acc.ID)
		return envelope.OK(c, fiber.Map{"id": acc.ID, "token": token})
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username and password required")
		}
		acc, err := svc.Authenticate(c.Context(), req.Username, req.Password)
		if err != nil {
			return envelope.Error(c, err)
		}
		token, err := tokens.IssueToken(acc.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return envelope.OK(c, fiber.Map{"id": acc.ID, "token": token})
	})

	r.Get("/profiles/id/:id", func(c *fiber.Ctx) error {
		acc, err := svc.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"profile": acc})
	})

	r.Get("/profiles/:username", func(c *fiber.Ctx) error {
		acc, err := svc.GetByUsername(c.Context(), c.Params("username"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"profile": acc})
	})

	r.Post("/profiles/password", authMiddleware, func(c *fiber.Ctx) error {
		var req ChangePasswordRequest
		if err := c.BodyParser(&req); err != nil || req.Username == "" || req.CurrentPassword == "" || req.NewPassword == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username, currentPassword and newPassword required")
		}
		if err := svc.ChangePassword(c.Context(), req); err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, nil)
	})

	r.Post("/profiles", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil || req.OldUsername == "" || req.Username == "" {
			return fiber.NewError(fiber.StatusBadRequest, "old_username and username required")
		}
		if _, err := svc.UpdateProfile(c.Context(), req); err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, nil)
	})
}
