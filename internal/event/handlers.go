package event

import (
	"backend-tripcal/internal/shared/envelope"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Event
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.TripID == "" || req.Title == "" {
			return fiber.NewError(fiber.StatusBadRequest, "trip_id and title required")
		}
		ev, err := svc.CreateEvent(c.Context(), req)
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"event": ev})
	})

	list := func(c *fiber.Ctx) error {
		events, err := svc.ListEventsForTrip(c.Context(), c.Params("trip_id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		if len(events) == 0 {
			return envelope.FailWith(c, fiber.Map{"message": "no events found for trip", "events": events})
		}
		return envelope.OK(c, fiber.Map{"events": events})
	}
	r.Get("/trip/:trip_id", list)
	r.Get("/calendar/:trip_id", list)

	r.Get("/trip/:trip_id/conflicts", func(c *fiber.Ctx) error {
		groups, err := svc.Conflicts(c.Context(), c.Params("trip_id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		if groups == nil {
			groups = []ConflictGroup{}
		}
		return envelope.OK(c, fiber.Map{"conflicts": groups})
	})

	r.Get("/trip/:trip_id/costs", func(c *fiber.Ctx) error {
		costs, err := svc.CostSummary(c.Context(), c.Params("trip_id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"costs": costs})
	})

	r.Get("/:event_id", func(c *fiber.Ctx) error {
		ev, err := svc.GetEvent(c.Context(), c.Params("event_id"))
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"event": ev})
	})

	r.Put("/:event_id", authMiddleware, func(c *fiber.Ctx) error {
		var req Event
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ev, err := svc.UpdateEvent(c.Context(), c.Params("event_id"), req)
		if err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, fiber.Map{"event": ev})
	})

	r.Delete("/:event_id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteEvent(c.Context(), c.Params("event_id")); err != nil {
			return envelope.Error(c, err)
		}
		return envelope.OK(c, nil)
	})
}
