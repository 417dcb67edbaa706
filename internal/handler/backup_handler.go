package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// BackupHandler triggers moderation exports.
type BackupHandler struct {
	service service.BackupService
	guard   Guard
	logger  zerolog.Logger
}

// NewBackupHandler constructs a backup handler.
func NewBackupHandler(service service.BackupService, guard Guard, logger zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		service: service,
		guard:   guard,
		logger:  logger.With().Str("component", "backup_handler").Logger(),
	}
}

// Register wires backup routes under the admin group.
func (h *BackupHandler) Register(router fiber.Router) {
	router.Post("/backup", h.guard.wrap(middleware.CapBackupExport, h.export)...)
}

func (h *BackupHandler) export(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.service.Export(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondServiceError(c, logger, err, "export backup")
	}

	logger.Info().Str("file", response.FileName).Int("activities", response.Counts.Activities).Msg("backup exported")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "backup exported", response)
}
