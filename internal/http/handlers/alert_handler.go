package handlers

import (
	"github.com/gofiber/fiber/v2"

	"seatwatch/internal/domain"
	applog "seatwatch/internal/log"
	"seatwatch/internal/services"
	"seatwatch/internal/validate"
)

type AlertHandler struct {
	Alerts   *services.AlertService
	Notifier *services.Notifier
}

type createAlertReq struct {
	UserID    string `json:"user_id" validate:"required,max=64"`
	SectionID int64  `json:"section_id" validate:"required,gt=0"`
	Interval  int    `json:"notification_interval_minutes" validate:"omitempty,min=1,max=1440"`
}

// POST /api/alerts
func (h *AlertHandler) Create(c *fiber.Ctx) error {
	var req createAlertReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	userID, ok := validate.ID(req.UserID)
	if !ok {
		return badRequest(c, "invalid user_id")
	}
	v, err := h.Alerts.Create(c.UserContext(), userID, req.SectionID, req.Interval)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "alerts.create", map[string]any{"alert_id": v.ID, "user_id": userID, "section_id": req.SectionID})
	return c.Status(fiber.StatusCreated).JSON(v)
}

// GET /api/alerts?user_id=&active_only=
func (h *AlertHandler) List(c *fiber.Ctx) error {
	activeOnly := true
	if b, ok := validate.Bool(c.Query("active_only")); ok {
		activeOnly = b
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, ok := validate.ID(raw)
		if !ok {
			return badRequest(c, "invalid user_id")
		}
		list, err := h.Alerts.ForUser(c.UserContext(), userID, activeOnly)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	}
	list, err := h.Alerts.List(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// GET /api/alerts/:id
func (h *AlertHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid alert id")
	}
	v, err := h.Alerts.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(v)
}

type updateAlertReq struct {
	Interval *int  `json:"notification_interval_minutes" validate:"omitempty,min=1,max=1440"`
	IsActive *bool `json:"is_active"`
}

// PUT /api/alerts/:id
func (h *AlertHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid alert id")
	}
	var req updateAlertReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	v, err := h.Alerts.Update(c.UserContext(), id, domain.AlertUpdate{
		NotificationIntervalMinutes: req.Interval,
		IsActive:                    req.IsActive,
	})
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "alerts.update", map[string]any{"alert_id": id})
	return c.JSON(v)
}

// DELETE /api/alerts/:id
func (h *AlertHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid alert id")
	}
	if err := h.Alerts.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "alerts.delete", map[string]any{"alert_id": id})
	return c.JSON(fiber.Map{"message": "Alert deleted successfully"})
}

// POST /api/alerts/check-and-notify
func (h *AlertHandler) CheckAndNotify(c *fiber.Ctx) error {
	res, err := h.Notifier.Run(c.UserContext())
	if err != nil {
		return err
	}
	applog.Audit(c, "alerts.notify", map[string]any{"sent": res.Sent, "failed": res.Failed})
	return c.JSON(res)
}
