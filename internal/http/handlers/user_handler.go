package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "seatwatch/internal/log"
	"seatwatch/internal/services"
	"seatwatch/internal/validate"
)

type UserHandler struct {
	Users  *services.UserService
	Alerts *services.AlertService
}

type createUserReq struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"max=100"`
}

// POST /api/users
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req createUserReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		return badRequest(c, "enter a valid email")
	}
	u, err := h.Users.Register(c.UserContext(), email, req.FullName)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "users.create", map[string]any{"user_id": u.ID})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid user id")
	}
	u, err := h.Users.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

type notificationsReq struct {
	Enabled *bool `json:"email_notifications_enabled" validate:"required"`
}

// PUT /api/users/:id/notifications
func (h *UserHandler) SetNotifications(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req notificationsReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	u, err := h.Users.SetNotifications(c.UserContext(), id, *req.Enabled)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "users.notifications", map[string]any{"user_id": id, "enabled": *req.Enabled})
	return c.JSON(u)
}

// GET /api/users/:id/alerts
func (h *UserHandler) ListAlerts(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid user id")
	}
	activeOnly := true
	if b, ok := validate.Bool(c.Query("active_only")); ok {
		activeOnly = b
	}
	list, err := h.Alerts.ForUser(c.UserContext(), id, activeOnly)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}
