package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/observability"
)

const (
	eventBufferSize = 32
	recentEventIDs  = 512
)

// EventPublisher emits moderation events. Publishing is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.ModerationEvent)
}

// ModerationEventBus fans moderation events out to local subscribers and to
// other instances through Redis and NATS.
type ModerationEventBus interface {
	EventPublisher
	Subscribe() (<-chan dto.ModerationEvent, func())
	Start(ctx context.Context)
}

type moderationEventBus struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string

	mu          sync.RWMutex
	subscribers map[chan dto.ModerationEvent]struct{}

	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

type moderationEnvelope struct {
	Source string              `json:"source"`
	Event  dto.ModerationEvent `json:"event"`
	SentAt time.Time           `json:"sent_at"`
}

// NewModerationEventBus constructs the event bus. Redis and NATS are optional.
func NewModerationEventBus(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ModerationEventBus {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &moderationEventBus{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "moderation_event_bus").Logger(),
		nodeID:       uuid.NewString(),
		subscribers:  make(map[chan dto.ModerationEvent]struct{}),
		seen:         make(map[string]struct{}),
	}
}

// Start subscribes to the cross-instance transports. The Redis subscription is
// confirmed before Start returns.
func (b *moderationEventBus) Start(ctx context.Context) {
	if b.redis != nil && b.redisChannel != "" {
		pubsub := b.redis.Subscribe(ctx, b.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			b.logger.Error().Err(err).Msg("failed to subscribe to redis moderation channel")
			_ = pubsub.Close()
		} else {
			go b.consumeRedis(ctx, pubsub)
		}
	}
	if b.nats != nil && b.natsSubject != "" {
		b.consumeNATS(ctx)
	}
}

func (b *moderationEventBus) Publish(ctx context.Context, event dto.ModerationEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.remember(event.ID)
	observability.ModerationEvents().WithLabelValues(event.Type).Inc()
	b.broadcast(event)

	if err := b.publishRemote(ctx, event); err != nil {
		b.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish moderation event to broker")
	}
}

func (b *moderationEventBus) Subscribe() (<-chan dto.ModerationEvent, func()) {
	channel := make(chan dto.ModerationEvent, eventBufferSize)

	b.mu.Lock()
	b.subscribers[channel] = struct{}{}
	b.mu.Unlock()
	observability.AlertClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, channel)
			close(channel)
			b.mu.Unlock()
			observability.AlertClientsActive().Dec()
		})
	}

	return channel, cleanup
}

func (b *moderationEventBus) broadcast(event dto.ModerationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *moderationEventBus) publishRemote(ctx context.Context, event dto.ModerationEvent) error {
	if (b.redis == nil || b.redisChannel == "") && (b.nats == nil || b.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(moderationEnvelope{
		Source: b.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *moderationEventBus) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			b.logger.Error().Err(err).Msg("moderation redis subscription closed")
			return
		}
		b.handleEnvelope([]byte(msg.Payload))
	}
}

func (b *moderationEventBus) consumeNATS(ctx context.Context) {
	sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
		b.handleEnvelope(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats moderation subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain moderation nats subscription")
		}
	}()
}

func (b *moderationEventBus) handleEnvelope(payload []byte) {
	var envelope moderationEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("invalid moderation event payload")
		return
	}

	if envelope.Source == b.nodeID {
		return
	}
	// Events arrive once per transport.
	if !b.remember(envelope.Event.ID) {
		return
	}

	b.broadcast(envelope.Event)
}

// remember records an event id and reports whether it was new.
func (b *moderationEventBus) remember(id string) bool {
	if id == "" {
		return true
	}

	b.seenMu.Lock()
	defer b.seenMu.Unlock()

	if _, ok := b.seen[id]; ok {
		return false
	}
	b.seen[id] = struct{}{}
	b.seenOrder = append(b.seenOrder, id)
	if len(b.seenOrder) > recentEventIDs {
		oldest := b.seenOrder[0]
		b.seenOrder = b.seenOrder[1:]
		delete(b.seen, oldest)
	}
	return true
}
