package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zh-portal/zh_portal/internal/identity"
)

// RegisterHealthRoutes adds a readiness endpoint reporting the user store and cache.
func RegisterHealthRoutes(app *fiber.App, store identity.Store, cache *redis.Client) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		checks := fiber.Map{"store": "ok"}

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		healthy := true
		if p, ok := store.(identity.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				checks["store"] = err.Error()
				healthy = false
			}
		}
		if cache != nil {
			checks["redis"] = "ok"
			if err := cache.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
