package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/pkg/logger"
)

// RequestLogger emits one structured event per request after the
// handler chain completes.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.IP(),
		}
		if user := GetCurrentUser(c); user != nil {
			fields["user_id"] = user.ID.String()
		}

		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			logger.Warn("http_request", fields)
		} else {
			logger.Info("http_request", fields)
		}

		return err
	}
}
