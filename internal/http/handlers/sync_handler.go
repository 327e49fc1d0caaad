package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	applog "seatwatch/internal/log"
	"seatwatch/internal/services"
)

type SyncHandler struct {
	Sync *services.SyncService
	// Go runs background passes; defaults to a goroutine.
	Go func(func())
}

// POST /api/sync/courses
func (h *SyncHandler) Start(c *fiber.Ctx) error {
	run := h.Go
	if run == nil {
		run = func(fn func()) { go fn() }
	}
	run(func() {
		if _, err := h.Sync.Sync(context.Background()); err != nil {
			applog.Error(nil, "sync.background.fail", err, nil)
		}
	})
	applog.Audit(c, "sync.start", nil)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Sync started in background"})
}

// POST /api/sync/courses/sync-now
func (h *SyncHandler) Now(c *fiber.Ctx) error {
	out, err := h.Sync.Sync(c.UserContext())
	if err != nil {
		return err
	}
	applog.Audit(c, "sync.now", map[string]any{"added": out.Added, "updated": out.Updated, "failed": out.Failed})
	return c.JSON(out)
}

// GET /api/sync/status
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	st, err := h.Sync.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}
