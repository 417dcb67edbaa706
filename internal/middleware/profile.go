package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// ProfileLookup loads the caller's profile row.
type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (models.Profile, error)
}

// ResolveProfile replaces the token's role claim with the role stored on the
// caller's profile. Callers without a profile keep the claim, or fall back to
// the plain user role.
func ResolveProfile(profiles ProfileLookup, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "profile_resolver").Logger()

	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		profile, err := profiles.GetByID(c.UserContext(), userID)
		switch {
		case err == nil:
			if role, ok := models.ParseRole(string(profile.Role)); ok {
				c.Locals(LocalUserRole, string(role))
				return c.Next()
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			log.Error().Err(err).Str("user_id", userID).Msg("failed to load caller profile")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve caller profile")
		}

		if _, ok := models.ParseRole(normalizeRoleValue(c.Locals(LocalUserRole))); !ok {
			c.Locals(LocalUserRole, string(models.RoleUser))
		}
		return c.Next()
	}
}
