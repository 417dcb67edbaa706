package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// BanChecker answers whether a user is currently banned.
type BanChecker interface {
	IsBanned(ctx context.Context, userID string) (dto.BanStatusResponse, error)
}

// BanGate short-circuits banned callers before a privileged handler runs.
func BanGate(checker BanChecker, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "ban_gate").Logger()

	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		status, err := checker.IsBanned(c.UserContext(), userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("ban check failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to verify ban status")
		}
		if status.Banned {
			details := fiber.Map{"banned": true, "ban_type": status.BanType}
			if status.BannedUntil != nil {
				details["banned_until"] = status.BannedUntil
			}
			return utils.Fail(c, fiber.StatusForbidden, "user is banned", details)
		}

		return c.Next()
	}
}
