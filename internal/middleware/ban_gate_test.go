package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
)

type stubBanChecker struct {
	banned map[string]dto.BanStatusResponse
	err    error
}

func (s stubBanChecker) IsBanned(ctx context.Context, userID string) (dto.BanStatusResponse, error) {
	if s.err != nil {
		return dto.BanStatusResponse{}, s.err
	}
	return s.banned[userID], nil
}

func banGateApp(checker BanChecker, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, userID)
		return c.Next()
	})
	app.Use(BanGate(checker, zerolog.Nop()))
	app.Get("/privileged", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestBanGateBlocksBannedCaller(t *testing.T) {
	until := time.Now().Add(time.Hour).UTC()
	checker := stubBanChecker{banned: map[string]dto.BanStatusResponse{
		"u-banned": {Banned: true, BanType: "temporary", BannedUntil: &until},
	}}

	resp, err := banGateApp(checker, "u-banned").Test(httptest.NewRequest(http.MethodGet, "/privileged", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, false, body["success"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, details["banned"])
	require.Equal(t, "temporary", details["ban_type"])

	resp, err = banGateApp(checker, "u-clean").Test(httptest.NewRequest(http.MethodGet, "/privileged", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestBanGateFailsClosedOnStoreError(t *testing.T) {
	checker := stubBanChecker{err: errors.New("connection refused")}

	resp, err := banGateApp(checker, "u-1").Test(httptest.NewRequest(http.MethodGet, "/privileged", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
