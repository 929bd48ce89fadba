package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/skillpath-api/internal/config"
	"github.com/noah-isme/skillpath-api/internal/utils"
)

// HealthComponents reports which optional collaborators were wired at startup.
type HealthComponents struct {
	AIReady       bool `json:"ai_ready"`
	CacheEnabled  bool `json:"cache_enabled"`
	EventsEnabled bool `json:"events_enabled"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string           `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	Service     string           `json:"service"`
	Environment string           `json:"environment"`
	AIProvider  string           `json:"ai_provider"`
	Components  HealthComponents `json:"components"`
}

// HealthCheck reports "ok" when roadmaps can be generated and "degraded" when no AI provider is configured.
// Cache and events are optional and never degrade the status.
func HealthCheck(cfg config.Config, components HealthComponents) fiber.Handler {
	status := "ok"
	if !components.AIReady {
		status = "degraded"
	}

	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service "+status, HealthResponse{
			Status:      status,
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			AIProvider:  cfg.AIProvider,
			Components:  components,
		})
	}
}
