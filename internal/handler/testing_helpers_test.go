package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/risk"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Data    json.RawMessage        `json:"data"`
	Details map[string]interface{} `json:"details"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload envelope
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func decodeData(t *testing.T, payload envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(payload.Data, target))
}

func asCaller(userID string, role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals(middleware.LocalUserID, userID)
		}
		if role != "" {
			c.Locals(middleware.LocalUserRole, string(role))
		}
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) *http.Response {
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
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

type mockActivityService struct {
	mu          sync.Mutex
	lastRecord  dto.ActivityCreateRequest
	lastList    dto.ActivityListRequest
	record      models.ActivityRecord
	list        dto.ActivityListResponse
	activity    dto.ActivityResponse
	recordErr   error
	listErr     error
	getErr      error
	recordCalls int
}

func (m *mockActivityService) Record(_ context.Context, payload dto.ActivityCreateRequest) (models.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCalls++
	m.lastRecord = payload
	if m.recordErr != nil {
		return models.ActivityRecord{}, m.recordErr
	}
	return m.record, nil
}

func (m *mockActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	m.lastList = req
	if m.listErr != nil {
		return dto.ActivityListResponse{}, m.listErr
	}
	return m.list, nil
}

func (m *mockActivityService) Get(_ context.Context, _ string) (dto.ActivityResponse, error) {
	if m.getErr != nil {
		return dto.ActivityResponse{}, m.getErr
	}
	return m.activity, nil
}

type mockBanService struct {
	lastBan        dto.BanCreateRequest
	lastList       dto.BanListRequest
	unbannedUser   string
	unbannedBy     string
	checkedEmail   string
	banResponse    dto.BanCreateResponse
	listResponse   dto.BanListResponse
	checkResponse  dto.CheckBanResponse
	statusResponse dto.BanStatusResponse
	banErr         error
	unbanErr       error
	listErr        error
	checkErr       error
}

func (m *mockBanService) Ban(_ context.Context, payload dto.BanCreateRequest) (dto.BanCreateResponse, error) {
	m.lastBan = payload
	if m.banErr != nil {
		return dto.BanCreateResponse{}, m.banErr
	}
	return m.banResponse, nil
}

func (m *mockBanService) Unban(_ context.Context, userID, unbannedBy string) error {
	m.unbannedUser = userID
	m.unbannedBy = unbannedBy
	return m.unbanErr
}

func (m *mockBanService) IsBanned(_ context.Context, _ string) (dto.BanStatusResponse, error) {
	return m.statusResponse, nil
}

func (m *mockBanService) List(_ context.Context, req dto.BanListRequest) (dto.BanListResponse, error) {
	m.lastList = req
	if m.listErr != nil {
		return dto.BanListResponse{}, m.listErr
	}
	return m.listResponse, nil
}

func (m *mockBanService) CheckByEmail(_ context.Context, email string) (dto.CheckBanResponse, error) {
	m.checkedEmail = email
	if m.checkErr != nil {
		return dto.CheckBanResponse{}, m.checkErr
	}
	return m.checkResponse, nil
}

type mockModerationService struct {
	lastList   dto.SuspiciousListRequest
	lastUpdate dto.SuspiciousUpdateRequest
	list       dto.SuspiciousListResponse
	updated    dto.SuspiciousResponse
	listErr    error
	updateErr  error
}

func (m *mockModerationService) OpenCase(_ context.Context, _ models.ActivityRecord, _ risk.Finding) (models.SuspiciousActivity, bool, error) {
	return models.SuspiciousActivity{}, false, nil
}

func (m *mockModerationService) ListSuspicious(_ context.Context, req dto.SuspiciousListRequest) (dto.SuspiciousListResponse, error) {
	m.lastList = req
	if m.listErr != nil {
		return dto.SuspiciousListResponse{}, m.listErr
	}
	return m.list, nil
}

func (m *mockModerationService) UpdateStatus(_ context.Context, req dto.SuspiciousUpdateRequest) (dto.SuspiciousResponse, error) {
	m.lastUpdate = req
	if m.updateErr != nil {
		return dto.SuspiciousResponse{}, m.updateErr
	}
	return m.updated, nil
}

func (m *mockModerationService) ReviewActivity(ctx context.Context, id, reviewedBy string) (dto.SuspiciousResponse, error) {
	return m.UpdateStatus(ctx, dto.SuspiciousUpdateRequest{ID: id, Status: string(models.SuspiciousReviewed), ReviewedBy: reviewedBy})
}

type mockBackupService struct {
	actorID  string
	response dto.BackupResponse
	err      error
}

func (m *mockBackupService) Export(_ context.Context, actorID string) (dto.BackupResponse, error) {
	m.actorID = actorID
	if m.err != nil {
		return dto.BackupResponse{}, m.err
	}
	return m.response, nil
}
