package handlers

import (
	"github.com/gofiber/fiber/v2"

	"seatwatch/internal/services"
	"seatwatch/internal/validate"
)

// RealtimeHandler answers from the live feed instead of the stored catalog.
type RealtimeHandler struct {
	Live *services.RealtimeService
}

// GET /api/realtime/courses
func (h *RealtimeHandler) Courses(c *fiber.Ctx) error {
	snap, err := h.Live.Snapshot(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(snap)
}

// GET /api/realtime/courses/:code
func (h *RealtimeHandler) ByCode(c *fiber.Ctx) error {
	code, ok := validate.CourseCode(c.Params("code"))
	if !ok {
		return badRequest(c, "invalid course code")
	}
	list, err := h.Live.ByCode(c.UserContext(), code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// GET /api/realtime/search?q=
func (h *RealtimeHandler) Search(c *fiber.Ctx) error {
	q := c.Query("q")
	list, err := h.Live.Search(c.UserContext(), q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"query": q, "results": len(list), "courses": list})
}

// GET /api/realtime/stats
func (h *RealtimeHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Live.Stats(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(st)
}
