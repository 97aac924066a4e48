package trip

import (
	"backend-tripcal/internal/shared/envelope"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Trip
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Owner == "" || req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "owner and name required")
		}
		trip, err := svc.CreateTrip(c.Context(), req)
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"calendar": trip})
	})

	r.Get("/users/:id", func(c *fiber.Ctx) error {
		trips, err := svc.ListTripsFor(c.Context(), c.Params("id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		if len(trips) == 0 {
			return envelope.FailWith(c, fiber.Map{"calendars": trips})
		}
		return envelope.OK(c, fiber.Map{"calendars": trips})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		trip, err := svc.GetTrip(c.Context(), c.Params("id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"calendar": trip})
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req Trip
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Owner == "" {
			return fiber.NewError(fiber.StatusBadRequest, "owner required")
		}
		trip, err := svc.UpdateTrip(c.Context(), c.Params("id"), req)
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"calendar": trip})
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		removed, err := svc.DeleteTrip(c.Context(), c.Params("id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"removed": removed})
	})
}
