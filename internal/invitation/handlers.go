package invitation

import (
	"backend-tripcal/internal/shared/envelope"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req ProposeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.TripID == "" || req.InviterID == "" || req.InviteeUsername == "" {
			return fiber.NewError(fiber.StatusBadRequest, "trip_id, inviter_id and invitee_username required")
		}
		inv, err := svc.Propose(c.Context(), req)
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"invitation": inv})
	})

	r.Get("/trip/:trip_id", func(c *fiber.Ctx) error {
		listing, err := svc.ListForTrip(c.Context(), c.Params("trip_id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"invitations": listing.Invitations, "stale": listing.Stale})
	})

	r.Get("/:user_id", func(c *fiber.Ctx) error {
		listing, err := svc.ListForInvitee(c.Context(), c.Params("user_id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"invitations": listing.Invitations, "stale": listing.Stale})
	})

	r.Post("/:id/accept", authMiddleware, func(c *fiber.Ctx) error {
		inv, err := svc.Accept(c.Context(), c.Params("id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"trip_id": inv.TripID})
	})

	r.Post("/:id/reject", authMiddleware, func(c *fiber.Ctx) error {
		if _, err := svc.Reject(c.Context(), c.Params("id")); err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, nil)
	})
}
