package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/highscore-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Users   *handlers.UsersHandler
	Session *handlers.SessionHandler
	Profile *handlers.ProfileHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/register", cfg.Users.Register)
	app.Post("/:clientRequestId/login", cfg.Users.Login)
	app.Get("/:clientRequestId/verify", cfg.Session.Verify)

	app.Get("/:token/profile", cfg.Profile.Profile)
	app.Patch("/:token/highscore", cfg.Profile.UpdateHighScore)
}
