package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
)

const alertsPingInterval = 30 * time.Second

// AlertSource hands out moderation event subscriptions.
type AlertSource interface {
	Subscribe() (<-chan dto.ModerationEvent, func())
}

// AlertsHandler streams moderation events to admin dashboards over websocket.
type AlertsHandler struct {
	source    AlertSource
	guard     Guard
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAlertsHandler constructs the alerts stream handler.
func NewAlertsHandler(source AlertSource, guard Guard, logger zerolog.Logger) *AlertsHandler {
	return &AlertsHandler{
		source:    source,
		guard:     guard,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "alerts_handler").Logger(),
	}
}

// Register binds the websocket route under the admin group.
func (h *AlertsHandler) Register(router fiber.Router) {
	router.Get("/alerts/ws", h.guard.wrap(middleware.CapAlertsStream, h.upgrade, websocket.New(h.stream))...)
}

func (h *AlertsHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
	c.Locals("request_ctx", ctx)
	return c.Next()
}

func (h *AlertsHandler) stream(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	logger := h.logger.With().Str("user_id", userID).Logger()
	if baseCtx, ok := conn.Locals("request_ctx").(context.Context); ok {
		if correlation := middleware.CorrelationIDFromContext(baseCtx); correlation != "" {
			logger = logger.With().Str("correlation_id", correlation).Logger()
		}
	}

	events, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(alertsPingInterval)
	defer ticker.Stop()

	logger.Info().Msg("alerts websocket connected")
	defer func() {
		logger.Info().Msg("alerts websocket disconnected")
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"))
				return
			}
			if err := conn.WriteJSON(h.render(event)); err != nil {
				logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to deliver alert")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// render escapes free text in the payload. Dashboards insert these values
// into HTML, while the stored rows keep the text as submitted.
func (h *AlertsHandler) render(event dto.ModerationEvent) dto.ModerationEvent {
	if len(event.Payload) == 0 {
		return event
	}
	payload := make(map[string]interface{}, len(event.Payload))
	for key, value := range event.Payload {
		payload[key] = h.renderValue(value)
	}
	event.Payload = payload
	return event
}

func (h *AlertsHandler) renderValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return h.sanitizer.Sanitize(v)
	case map[string]interface{}:
		nested := make(map[string]interface{}, len(v))
		for key, item := range v {
			nested[key] = h.renderValue(item)
		}
		return nested
	case []interface{}:
		items := make([]interface{}, len(v))
		for i, item := range v {
			items[i] = h.renderValue(item)
		}
		return items
	default:
		return value
	}
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals(middleware.LocalUserID); value != nil {
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		default:
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}
