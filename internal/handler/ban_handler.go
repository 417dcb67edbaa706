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

// BanHandler exposes the ban registry.
type BanHandler struct {
	service service.BanService
	guard   Guard
	logger  zerolog.Logger
}

// NewBanHandler constructs a ban handler.
func NewBanHandler(service service.BanService, guard Guard, logger zerolog.Logger) *BanHandler {
	return &BanHandler{
		service: service,
		guard:   guard,
		logger:  logger.With().Str("component", "ban_handler").Logger(),
	}
}

// Register wires the authenticated ban routes.
func (h *BanHandler) Register(router fiber.Router) {
	router.Post("/ban", h.guard.wrap(middleware.CapBanWrite, h.ban)...)
	router.Delete("/ban", h.guard.wrap(middleware.CapBanWrite, h.unban)...)
	router.Get("/bans", h.guard.wrap(middleware.CapBanRead, h.list)...)
}

// RegisterPublic wires the pre-login ban lookup. limiter may be nil.
func (h *BanHandler) RegisterPublic(router fiber.Router, limiter fiber.Handler) {
	if limiter != nil {
		router.Post("/check-ban", limiter, h.checkBan)
		return
	}
	router.Post("/check-ban", h.checkBan)
}

func (h *BanHandler) ban(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.BanCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(payload.BannedBy) == "" {
		payload.BannedBy = middleware.UserID(c)
	}

	response, err := h.service.Ban(c.UserContext(), payload)
	if err != nil {
		return respondServiceError(c, logger, err, "ban user")
	}

	logger.Info().Str("user_id", response.UserID).Str("ban_type", response.BanType).Msg("user banned")
	return utils.SendSuccess(c, "user banned", response)
}

func (h *BanHandler) unban(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user_id required")
	}
	unbannedBy := strings.TrimSpace(c.Query("unbanned_by"))
	if unbannedBy == "" {
		unbannedBy = middleware.UserID(c)
	}

	if err := h.service.Unban(c.UserContext(), userID, unbannedBy); err != nil {
		return respondServiceError(c, logger, err, "unban user")
	}

	logger.Info().Str("user_id", userID).Str("unbanned_by", unbannedBy).Msg("user unbanned")
	return utils.SendSuccess(c, "user unbanned", fiber.Map{"user_id": userID})
}

func (h *BanHandler) list(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	includeExpired, err := parseQueryBool(c, "include_expired")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid include_expired")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	response, err := h.service.List(c.UserContext(), dto.BanListRequest{
		BanType:        strings.TrimSpace(c.Query("ban_type")),
		IncludeExpired: includeExpired,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return respondServiceError(c, logger, err, "list bans")
	}

	return utils.SendSuccess(c, "bans retrieved", response)
}

func (h *BanHandler) checkBan(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.CheckBanRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(payload.Email) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email required")
	}

	response, err := h.service.CheckByEmail(c.UserContext(), payload.Email)
	if err != nil {
		return respondServiceError(c, logger, err, "check ban")
	}

	return utils.SendSuccess(c, "ban status", response)
}
