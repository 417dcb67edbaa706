package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

type stubProfiles map[string]models.Profile

func (s stubProfiles) GetByID(ctx context.Context, id string) (models.Profile, error) {
	if id == "broken" {
		return models.Profile{}, errors.New("database offline")
	}
	profile, ok := s[id]
	if !ok {
		return models.Profile{}, gorm.ErrRecordNotFound
	}
	return profile, nil
}

func resolveRole(t *testing.T, userID, claimRole string) (int, string) {
	t.Helper()
	profiles := stubProfiles{"editor-1": {ID: "editor-1", Role: models.RoleEditor}}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, userID)
		if claimRole != "" {
			c.Locals(LocalUserRole, claimRole)
		}
		return c.Next()
	})
	app.Use(ResolveProfile(profiles, zerolog.Nop()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(string(Role(c)))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestResolveProfilePrefersStoredRole(t *testing.T) {
	status, role := resolveRole(t, "editor-1", "admin")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "editor", role)
}

func TestResolveProfileFallsBackToClaim(t *testing.T) {
	status, role := resolveRole(t, "admin-9", "admin")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "admin", role)

	status, role = resolveRole(t, "stranger", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "user", role)
}

func TestResolveProfileStoreFailure(t *testing.T) {
	status, _ := resolveRole(t, "broken", "")
	require.Equal(t, fiber.StatusInternalServerError, status)
}
