package middlewares

import (
	"fencing-backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimiter limits requests per client IP. A nil storage keeps counters in memory.
func RateLimiter(cfg config.ServerConfig, storage fiber.Storage) fiber.Handler {
	lc := limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "too many requests"})
		},
	}
	if storage != nil {
		lc.Storage = storage
	}
	return limiter.New(lc)
}
