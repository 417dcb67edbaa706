package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/handler"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
)

func activityApp(svc *mockActivityService, userID string, role models.Role) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1", asCaller(userID, role))
	handler.NewActivityHandler(svc, nil, nil, zerolog.Nop()).Register(group)
	return app
}

func TestActivityHandler_RecordDefaultsToCaller(t *testing.T) {
	svc := &mockActivityService{record: models.ActivityRecord{ID: "act-1"}}
	app := activityApp(svc, "user-1", models.RoleUser)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/activity", map[string]interface{}{
		"activity_type": "query",
		"action":        "asked about inheritance law",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.True(t, payload.Success)

	var data dto.ActivityCreateResponse
	decodeData(t, payload, &data)
	require.Equal(t, "act-1", data.ActivityID)

	require.Equal(t, "user-1", svc.lastRecord.UserID)
	require.NotEmpty(t, svc.lastRecord.IPAddress)
	require.Contains(t, svc.lastRecord.UserAgent, "Chrome")
}

func TestActivityHandler_UserCannotRecordForOthers(t *testing.T) {
	svc := &mockActivityService{}
	app := activityApp(svc, "user-1", models.RoleUser)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/activity", map[string]interface{}{
		"user_id":       "user-2",
		"activity_type": "query",
		"action":        "asked",
	})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Zero(t, svc.recordCalls)
}

func TestActivityHandler_EditorRecordsOnBehalf(t *testing.T) {
	svc := &mockActivityService{record: models.ActivityRecord{ID: "act-2"}}
	app := activityApp(svc, "editor-1", models.RoleEditor)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/activity", map[string]interface{}{
		"user_id":       "user-2",
		"activity_type": "upload",
		"action":        "uploaded statute",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "user-2", svc.lastRecord.UserID)
}

func TestActivityHandler_RecordErrorMapping(t *testing.T) {
	until := time.Now().Add(time.Hour).UTC()
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "validation", err: fmt.Errorf("%w: action is required", service.ErrValidation), status: fiber.StatusBadRequest},
		{name: "banned", err: &service.BannedError{Ban: models.BanEntry{UserID: "user-1", BanType: models.BanTemporary, BannedUntil: &until}}, status: fiber.StatusForbidden},
		{name: "store", err: fmt.Errorf("%w: create activity: disk full", service.ErrStore), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockActivityService{recordErr: tc.err}
			app := activityApp(svc, "user-1", models.RoleUser)

			resp := doJSON(t, app, http.MethodPost, "/api/v1/activity", map[string]interface{}{
				"activity_type": "login",
				"action":        "login",
			})
			require.Equal(t, tc.status, resp.StatusCode)

			payload := decodeEnvelope(t, resp)
			require.False(t, payload.Success)
			require.NotEmpty(t, payload.Error)
			if tc.name == "banned" {
				require.Equal(t, true, payload.Details["banned"])
				require.Equal(t, "temporary", payload.Details["ban_type"])
				require.NotNil(t, payload.Details["banned_until"])
			}
		})
	}
}

func TestActivityHandler_ListParsesFilters(t *testing.T) {
	svc := &mockActivityService{list: dto.ActivityListResponse{
		Activities: []dto.ActivityResponse{{ID: "act-1", ActivityType: "login", RiskLevel: "low"}},
		Total:      1,
	}}
	app := activityApp(svc, "admin-1", models.RoleAdmin)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/activities?user_id=user-1&activity_type=login&risk_level=high&start=2024-05-01T00:00:00Z&end=2024-05-02T00:00:00Z&limit=10&offset=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var data dto.ActivityListResponse
	decodeData(t, decodeEnvelope(t, resp), &data)
	require.EqualValues(t, 1, data.Total)
	require.Len(t, data.Activities, 1)

	require.Equal(t, "user-1", svc.lastList.UserID)
	require.Equal(t, "login", svc.lastList.ActivityType)
	require.Equal(t, "high", svc.lastList.RiskLevel)
	require.NotNil(t, svc.lastList.Start)
	require.NotNil(t, svc.lastList.End)
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *svc.lastList.Start)
	require.Equal(t, 10, svc.lastList.Limit)
	require.Equal(t, 5, svc.lastList.Offset)
}

func TestActivityHandler_ListRejectsBadQuery(t *testing.T) {
	svc := &mockActivityService{}
	app := activityApp(svc, "admin-1", models.RoleAdmin)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/activities?start=yesterday", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/activities?limit=ten", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestActivityHandler_GetNotFound(t *testing.T) {
	svc := &mockActivityService{getErr: fmt.Errorf("%w: activity missing", service.ErrNotFound)}
	app := activityApp(svc, "admin-1", models.RoleAdmin)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/activities/missing", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
