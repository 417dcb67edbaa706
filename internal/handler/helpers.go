package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// Guard builds the middleware chain that protects a route with one capability.
// A nil Guard registers routes unprotected, which tests rely on.
type Guard func(capability middleware.Capability) []fiber.Handler

func (g Guard) wrap(capability middleware.Capability, handlers ...fiber.Handler) []fiber.Handler {
	if g == nil {
		return handlers
	}
	chain := append([]fiber.Handler{}, g(capability)...)
	return append(chain, handlers...)
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryFloat(c *fiber.Ctx, key string) (*float64, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseQueryBool(c *fiber.Ctx, key string) (bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) fiber.Map {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make(fiber.Map, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return fiber.Map{"fields": fields}
}

// respondServiceError maps service sentinels onto the response envelope.
func respondServiceError(c *fiber.Ctx, logger *zerolog.Logger, err error, operation string) error {
	var banned *service.BannedError

	switch {
	case errors.As(err, &banned):
		details := fiber.Map{"banned": true, "ban_type": string(banned.Ban.BanType)}
		if banned.Ban.BannedUntil != nil {
			details["banned_until"] = banned.Ban.BannedUntil
		}
		return utils.Fail(c, fiber.StatusForbidden, "user is banned", details)
	case errors.Is(err, service.ErrUserBanned):
		return utils.Fail(c, fiber.StatusForbidden, "user is banned", fiber.Map{"banned": true})
	case errors.Is(err, service.ErrValidation) || isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), validationDetails(err))
	case errors.Is(err, service.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrConsistency):
		logger.Error().Err(err).Str("operation", operation).Msg("consistency check failed")
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	case errors.Is(err, service.ErrStore):
		logger.Error().Err(err).Str("operation", operation).Msg("store operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	default:
		logger.Error().Err(err).Str("operation", operation).Msg("unexpected service error")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to "+operation)
	}
}
