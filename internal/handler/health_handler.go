package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/legalbot-guard-api/internal/config"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
}

// Pinger reports whether a backing store is reachable.
type Pinger func() error

// HealthCheck returns a handler that reports application health information.
// A failing database ping degrades the status without failing the probe.
func HealthCheck(cfg config.Config, ping Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Database:    "unknown",
		}

		if ping != nil {
			if err := ping(); err != nil {
				payload.Status = "degraded"
				payload.Database = "unreachable"
			} else {
				payload.Database = "ok"
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
