package handler_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/handler"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
)

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

func TestAlertsStreamDeliversModerationEvents(t *testing.T) {
	bus := service.NewModerationEventBus(nil, "", nil, zerolog.Nop())

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	admin := app.Group("/api/v1/admin", asCaller("admin-1", models.RoleAdmin))
	handler.NewAlertsHandler(bus, capabilityGuard, zerolog.Nop()).Register(admin)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/admin/alerts/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"alerts-test"}})
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	// The server subscribes after the handshake, so keep publishing until the
	// first event arrives.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bus.Publish(ctx, dto.ModerationEvent{Type: dto.EventSuspiciousCreated, UserID: "user-7"})
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event dto.ModerationEvent
	require.NoError(t, conn.ReadJSON(&event))

	require.Equal(t, dto.EventUserBanned, event.Type)
	require.Equal(t, "user-7", event.UserID)
	require.Equal(t, "spam &amp; co", event.Payload["reason"])
	require.Equal(t, "permanent", event.Payload["ban_type"])
	require.NotEmpty(t, event.ID)
	require.False(t, event.OccurredAt.IsZero())
}
