package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	applog "seatwatch/internal/log"
)

const AdminKeyHeader = "X-Admin-Key"

// RequireAdmin guards operator endpoints with a shared key checked against a
// bcrypt hash. An empty hash disables the guarded routes entirely.
func RequireAdmin(keyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if keyHash == "" {
			applog.Security(c, "access.denied.admin", map[string]any{"reason": "disabled"})
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin api disabled"})
		}
		key := c.Get(AdminKeyHeader)
		if key == "" {
			applog.Security(c, "access.denied.admin", map[string]any{"reason": "missing key"})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "admin key required"})
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			applog.Security(c, "access.denied.admin", map[string]any{"reason": "bad key"})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}
