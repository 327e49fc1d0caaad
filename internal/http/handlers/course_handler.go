package handlers

import (
	"github.com/gofiber/fiber/v2"

	"seatwatch/internal/repos"
	"seatwatch/internal/services"
	"seatwatch/internal/validate"
)

type CourseHandler struct {
	Catalog *services.CatalogService
}

// GET /api/courses
func (h *CourseHandler) List(c *fiber.Ctx) error {
	f := repos.SectionFilter{
		Skip:  validate.Int(c.Query("skip"), 0, 0, 1<<31-1),
		Limit: validate.Int(c.Query("limit"), services.DefaultPageSize, 1, services.MaxPageSize),
	}
	if raw := c.Query("course_code"); raw != "" {
		code, ok := validate.CourseCode(raw)
		if !ok {
			return badRequest(c, "invalid course_code")
		}
		f.CourseCode = code
	}
	if raw := c.Query("section_type"); raw != "" {
		st, ok := validate.SectionType(raw)
		if !ok {
			return badRequest(c, "invalid section_type")
		}
		f.SectionType = st
	}
	if b, ok := validate.Bool(c.Query("available_only")); ok {
		f.AvailableOnly = &b
	}

	list, err := h.Catalog.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// GET /api/courses/:sectionId
func (h *CourseHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.SectionID(c.Params("sectionId"))
	if !ok {
		return badRequest(c, "invalid section id")
	}
	sec, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sec)
}

// GET /api/courses/code/:code
func (h *CourseHandler) ByCode(c *fiber.Ctx) error {
	code, ok := validate.CourseCode(c.Params("code"))
	if !ok {
		return badRequest(c, "invalid course code")
	}
	list, err := h.Catalog.ByCode(c.UserContext(), code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// GET /api/courses/stats/overview
func (h *CourseHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Catalog.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}
