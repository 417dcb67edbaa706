package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/legalbot-guard-api/internal/config"
	"github.com/noah-isme/legalbot-guard-api/internal/handler"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityHandler   *handler.ActivityHandler
	BanHandler        *handler.BanHandler
	SuspiciousHandler *handler.SuspiciousHandler
	BackupHandler     *handler.BackupHandler
	AlertsHandler     *handler.AlertsHandler
	CheckBanLimiter   fiber.Handler
	HealthPing        handler.Pinger
}

// AuthChain lists the middleware every protected route runs before its
// capability check.
type AuthChain struct {
	JWT     fiber.Handler
	Profile fiber.Handler
	BanGate fiber.Handler
}

// NewGuard composes the auth chain with a capability check. Missing links are
// skipped so partial chains can be used in tests.
func NewGuard(chain AuthChain) handler.Guard {
	return func(capability middleware.Capability) []fiber.Handler {
		handlers := make([]fiber.Handler, 0, 4)
		for _, h := range []fiber.Handler{chain.JWT, chain.Profile} {
			if h != nil {
				handlers = append(handlers, h)
			}
		}
		handlers = append(handlers, middleware.RequireCapability(capability))
		if chain.BanGate != nil {
			handlers = append(handlers, chain.BanGate)
		}
		return handlers
	}
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthPing))
	api.Get("/metrics", observability.MetricsHandler())

	if deps.BanHandler != nil {
		deps.BanHandler.RegisterPublic(api, deps.CheckBanLimiter)
		deps.BanHandler.Register(api)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api)
	}
	if deps.SuspiciousHandler != nil {
		deps.SuspiciousHandler.Register(api)
	}

	admin := api.Group("/admin")
	if deps.BackupHandler != nil {
		deps.BackupHandler.Register(admin)
	}
	if deps.AlertsHandler != nil {
		deps.AlertsHandler.Register(admin)
	}
}
