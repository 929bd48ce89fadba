package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/skillpath-api/internal/config"
	"github.com/noah-isme/skillpath-api/internal/handler"
	"github.com/noah-isme/skillpath-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RoadmapHandler *handler.RoadmapHandler
	CareerHandler  *handler.CareerHandler
	ChatHandler    *handler.ChatHandler
	QuoteHandler   *handler.QuoteHandler
	// OptionalAuth populates the user when a bearer token is present.
	OptionalAuth fiber.Handler
	// RequiredAuth guards groups where every route needs a user. Falls back to OptionalAuth.
	RequiredAuth      fiber.Handler
	GenerationLimiter fiber.Handler
	ChatLimiter       fiber.Handler
	Health            handler.HealthComponents
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))

	auth := deps.OptionalAuth
	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.QuoteHandler != nil {
		deps.QuoteHandler.Register(api.Group("/quotes"))
	}

	if deps.CareerHandler != nil {
		deps.CareerHandler.Register(api.Group("/careers", auth))
	}

	if deps.RoadmapHandler != nil {
		deps.RoadmapHandler.Register(api.Group("/roadmaps", auth), deps.GenerationLimiter)
	}

	if deps.ChatHandler != nil {
		chatAuth := deps.RequiredAuth
		if chatAuth == nil {
			chatAuth = auth
		}
		deps.ChatHandler.Register(api.Group("/chat", chatAuth), deps.ChatLimiter)
	}
}
