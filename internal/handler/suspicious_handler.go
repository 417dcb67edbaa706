package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// SuspiciousHandler exposes the moderation queue.
type SuspiciousHandler struct {
	service service.ModerationService
	guard   Guard
	logger  zerolog.Logger
}

// NewSuspiciousHandler constructs a moderation queue handler.
func NewSuspiciousHandler(service service.ModerationService, guard Guard, logger zerolog.Logger) *SuspiciousHandler {
	return &SuspiciousHandler{
		service: service,
		guard:   guard,
		logger:  logger.With().Str("component", "suspicious_handler").Logger(),
	}
}

// Register wires moderation queue routes.
func (h *SuspiciousHandler) Register(router fiber.Router) {
	router.Get("/suspicious", h.guard.wrap(middleware.CapSuspiciousRead, h.list)...)
	router.Patch("/suspicious", h.guard.wrap(middleware.CapSuspiciousWrite, h.update)...)
}

func (h *SuspiciousHandler) list(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	minScore, err := parseQueryFloat(c, "min_risk_score")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid min_risk_score")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	response, err := h.service.ListSuspicious(c.UserContext(), dto.SuspiciousListRequest{
		UserID:       strings.TrimSpace(c.Query("user_id")),
		Statuses:     splitAndTrim(c.Query("status")),
		MinRiskScore: minScore,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return respondServiceError(c, logger, err, "list suspicious activity")
	}

	return utils.SendSuccess(c, "suspicious activity retrieved", response)
}

func (h *SuspiciousHandler) update(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.SuspiciousUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(payload.ID) == "" || strings.TrimSpace(payload.Status) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id and status required")
	}
	if strings.TrimSpace(payload.ReviewedBy) == "" {
		payload.ReviewedBy = middleware.UserID(c)
	}

	activity, err := h.service.UpdateStatus(c.UserContext(), payload)
	if err != nil {
		return respondServiceError(c, logger, err, "update suspicious activity")
	}

	return utils.SendSuccess(c, "suspicious activity updated", dto.SuspiciousUpdateResponse{Activity: activity})
}
