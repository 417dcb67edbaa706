package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/legalbot-guard-api/internal/config"
	"github.com/noah-isme/legalbot-guard-api/internal/database"
	"github.com/noah-isme/legalbot-guard-api/internal/handler"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/repository"
	"github.com/noah-isme/legalbot-guard-api/internal/risk"
	"github.com/noah-isme/legalbot-guard-api/internal/router"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
)

const testSecret = "router-test-secret"

func buildApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	profiles := repository.NewProfileRepository(db)
	ctx := context.Background()
	for _, profile := range []models.Profile{
		{ID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin},
		{ID: "editor-1", Email: "editor@example.com", Role: models.RoleEditor},
		{ID: "user-1", Email: "user@example.com", Role: models.RoleUser},
	} {
		p := profile
		require.NoError(t, profiles.Create(ctx, &p))
	}

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	evaluator, err := risk.NewEvaluator(0)
	require.NoError(t, err)

	activityRepo := repository.NewActivityLogRepository(db)
	banRepo := repository.NewBanRepository(db)
	suspiciousRepo := repository.NewSuspiciousActivityRepository(db)

	bus := service.NewModerationEventBus(nil, "", nil, logger)
	moderation := service.NewModerationService(suspiciousRepo, bus, validate, logger)
	activities := service.NewActivityService(activityRepo, banRepo, evaluator, moderation, validate, service.ActivityServiceConfig{}, logger)
	bans := service.NewBanService(banRepo, profiles, nil, bus, validate, logger)
	backups := service.NewBackupService(activityRepo, banRepo, suspiciousRepo, nil, nil, bus, 100, logger)

	guard := router.NewGuard(router.AuthChain{
		JWT:     middleware.JWTProtected(testSecret),
		Profile: middleware.ResolveProfile(profiles, logger),
		BanGate: middleware.BanGate(bans, logger),
	})

	cfg := config.Config{AppName: "LegalBot Guard API", AppEnv: "test"}
	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler:   handler.NewActivityHandler(activities, guard, nil, logger),
		BanHandler:        handler.NewBanHandler(bans, guard, logger),
		SuspiciousHandler: handler.NewSuspiciousHandler(moderation, guard, logger),
		BackupHandler:     handler.NewBackupHandler(backups, guard, logger),
		AlertsHandler:     handler.NewAlertsHandler(bus, guard, logger),
		CheckBanLimiter:   middleware.RateLimit("check-ban", 100, time.Minute, nil),
		HealthPing:        sqlDB.Ping,
	})
	return app
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": "user",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func call(t *testing.T, app *fiber.App, method, target, userID string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	payload := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload
}

func TestRoutesEnforceAuthentication(t *testing.T) {
	app := buildApp(t)

	status, _ := call(t, app, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/activities", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, payload := call(t, app, http.MethodGet, "/api/v1/activities", "user-1", nil)
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, false, payload["success"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/activities", "editor-1", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/admin/backup", "editor-1", nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestBanLifecycleThroughHTTP(t *testing.T) {
	app := buildApp(t)

	status, _ := call(t, app, http.MethodPost, "/api/v1/activity", "user-1", map[string]interface{}{
		"activity_type": "query",
		"action":        "asked about labour contracts",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/ban", "editor-1", map[string]interface{}{
		"user_id":  "user-1",
		"reason":   "abusive prompts",
		"ban_type": "permanent",
	})
	require.Equal(t, fiber.StatusForbidden, status)

	status, payload := call(t, app, http.MethodPost, "/api/v1/ban", "admin-1", map[string]interface{}{
		"user_id":  "user-1",
		"reason":   "abusive prompts",
		"ban_type": "permanent",
	})
	require.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]interface{})
	require.NotEmpty(t, data["ban_id"])

	status, payload = call(t, app, http.MethodPost, "/api/v1/activity", "user-1", map[string]interface{}{
		"activity_type": "query",
		"action":        "asked again",
	})
	require.Equal(t, fiber.StatusForbidden, status)
	details := payload["details"].(map[string]interface{})
	require.Equal(t, true, details["banned"])

	status, payload = call(t, app, http.MethodPost, "/api/v1/check-ban", "", map[string]string{"email": "user@example.com"})
	require.Equal(t, fiber.StatusOK, status)
	data = payload["data"].(map[string]interface{})
	require.Equal(t, true, data["userExists"])
	require.Equal(t, true, data["isBanned"])

	status, _ = call(t, app, http.MethodDelete, "/api/v1/ban?user_id=user-1", "admin-1", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/ban?user_id=user-1", "admin-1", nil)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/activity", "user-1", map[string]interface{}{
		"activity_type": "query",
		"action":        "back again",
	})
	require.Equal(t, fiber.StatusOK, status)
}

func TestCheckBanUnknownEmail(t *testing.T) {
	app := buildApp(t)

	status, payload := call(t, app, http.MethodPost, "/api/v1/check-ban", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]interface{})
	require.Equal(t, false, data["userExists"])
	require.Equal(t, false, data["isBanned"])

	status, _ = call(t, app, http.MethodPost, "/api/v1/check-ban", "", map[string]string{"email": "not-an-email"})
	require.Equal(t, fiber.StatusBadRequest, status)
}
