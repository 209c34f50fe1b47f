package middleware

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/rosterline/backstage/configs"
)

type CronMiddleware struct {
	cfg config.Config
}

func NewCronMiddleware(cfg config.Config) *CronMiddleware {
	return &CronMiddleware{cfg: cfg}
}

// RequireSecret gates cron and metrics routes behind the shared secret. The
// Authorization header must equal "Bearer <secret>" exactly; the ?secret=
// query fallback exists for manual testing and only on routes that opt in.
func (m *CronMiddleware) RequireSecret(allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.cfg.CronSecret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "cron secret is not configured",
			})
		}

		if c.Get("Authorization") == "Bearer "+m.cfg.CronSecret {
			return c.Next()
		}

		if allowQuery && c.Query("secret") == m.cfg.CronSecret {
			return c.Next()
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or missing cron secret",
		})
	}
}
