package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// ActivityHandler exposes the activity log.
type ActivityHandler struct {
	service service.ActivityService
	guard   Guard
	limiter fiber.Handler
	logger  zerolog.Logger
}

// NewActivityHandler constructs an activity handler. limiter may be nil.
func NewActivityHandler(service service.ActivityService, guard Guard, limiter fiber.Handler, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		guard:   guard,
		limiter: limiter,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires activity routes.
func (h *ActivityHandler) Register(router fiber.Router) {
	record := []fiber.Handler{h.record}
	if h.limiter != nil {
		record = append([]fiber.Handler{h.limiter}, record...)
	}

	router.Post("/activity", h.guard.wrap(middleware.CapActivityRecord, record...)...)
	router.Get("/activities", h.guard.wrap(middleware.CapActivityRead, h.list)...)
	router.Get("/activities/:id", h.guard.wrap(middleware.CapActivityRead, h.get)...)
}

func (h *ActivityHandler) record(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.ActivityCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	payload.UserID = strings.TrimSpace(payload.UserID)
	caller := middleware.UserID(c)
	if payload.UserID == "" {
		payload.UserID = caller
	}
	if caller != "" && payload.UserID != caller && middleware.Role(c) == models.RoleUser {
		return utils.SendError(c, fiber.StatusForbidden, "users may only record their own activity")
	}

	if payload.IPAddress == "" {
		payload.IPAddress = c.IP()
	}
	if payload.UserAgent == "" {
		payload.UserAgent = c.Get(fiber.HeaderUserAgent)
	}

	record, err := h.service.Record(c.UserContext(), payload)
	if err != nil {
		return respondServiceError(c, logger, err, "record activity")
	}

	return utils.SendSuccess(c, "activity recorded", dto.ActivityCreateResponse{ActivityID: record.ID})
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}
	start, err := parseQueryTime(c, "start")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid start timestamp")
	}
	end, err := parseQueryTime(c, "end")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid end timestamp")
	}

	req := dto.ActivityListRequest{
		UserID:       strings.TrimSpace(c.Query("user_id")),
		ActivityType: strings.TrimSpace(c.Query("activity_type")),
		RiskLevel:    strings.TrimSpace(c.Query("risk_level")),
		Start:        start,
		End:          end,
		Limit:        limit,
		Offset:       offset,
	}

	response, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, logger, err, "list activities")
	}

	return utils.SendSuccess(c, "activities retrieved", response)
}

func (h *ActivityHandler) get(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "activity id required")
	}

	activity, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, logger, err, "load activity")
	}

	return utils.SendSuccess(c, "activity retrieved", fiber.Map{"activity": activity})
}
