package routes

import (
	"strings"

	"fencing-backend/config"
	"fencing-backend/controllers"
	"fencing-backend/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// NewApp builds the Fiber app with the global middleware chain and all routes.
// limiterStorage may be nil for in-memory rate limiting.
func NewApp(cfg *config.Config, h *controllers.Handler, db *gorm.DB, limiterStorage fiber.Storage) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler(h.Logger),
		BodyLimit:    cfg.Server.BodyLimitBytes,
		AppName:      "fencing-backend",
	})

	app.Use(middlewares.Metrics())
	app.Use(recover.New())

	// Credentials are allowed because the session travels in a cookie; the
	// wildcard origin is therefore never used.
	origins := strings.TrimSpace(cfg.Server.AllowedOrigins)
	if origins == "" || origins == "*" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	if cfg.Server.RateLimitMax > 0 {
		app.Use(middlewares.RateLimiter(cfg.Server, limiterStorage))
	}

	if cfg.Storage.S3Bucket == "" && cfg.Storage.LocalDir != "" && strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		app.Static(cfg.Storage.PublicURL, cfg.Storage.LocalDir)
	}

	app.Use(middlewares.Authenticated(h.Sessions, h.Cookie.Name))

	Register(app, h, db)
	return app
}
