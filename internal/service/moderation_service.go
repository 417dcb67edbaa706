package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/observability"
	"github.com/noah-isme/legalbot-guard-api/internal/repository"
	"github.com/noah-isme/legalbot-guard-api/internal/risk"
)

// ModerationService manages suspicious activity cases.
type ModerationService interface {
	CaseOpener
	ListSuspicious(ctx context.Context, req dto.SuspiciousListRequest) (dto.SuspiciousListResponse, error)
	UpdateStatus(ctx context.Context, req dto.SuspiciousUpdateRequest) (dto.SuspiciousResponse, error)
	ReviewActivity(ctx context.Context, id, reviewedBy string) (dto.SuspiciousResponse, error)
}

type moderationService struct {
	repo      repository.SuspiciousActivityRepository
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewModerationService constructs the moderation workflow. events may be nil.
func NewModerationService(repo repository.SuspiciousActivityRepository, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) ModerationService {
	return &moderationService{
		repo:      repo,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "moderation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/legalbot-guard-api/internal/service/moderation"),
		now:       utcNow,
	}
}

// OpenCase records a pending case unless an open one (pending or escalated)
// already exists for the same user and pattern. The open-case unique index
// settles concurrent openers; the loser gets the winner's case back.
func (s *moderationService) OpenCase(ctx context.Context, record models.ActivityRecord, finding risk.Finding) (models.SuspiciousActivity, bool, error) {
	userID := record.Actor()
	if userID == "" {
		return models.SuspiciousActivity{}, false, validationError("cannot open a case without a user")
	}

	ctx, span := s.tracer.Start(ctx, "moderation.open_case", trace.WithAttributes(
		attribute.String("case.user_id", userID),
		attribute.String("case.pattern", finding.Pattern),
	))
	defer span.End()

	existing, found, err := s.findOpenCase(ctx, userID, finding.Pattern)
	if err != nil {
		span.RecordError(err)
		return models.SuspiciousActivity{}, false, err
	}
	if found {
		return existing, false, nil
	}

	details := datatypes.JSONMap(finding.Details())
	details["trigger_activity_id"] = record.ID

	entry := models.SuspiciousActivity{
		UserID:          userID,
		ActivityType:    finding.ActivityType,
		Description:     finding.Description,
		RiskScore:       finding.Score,
		PatternDetected: finding.Pattern,
		Status:          models.SuspiciousPending,
		Details:         details,
		CreatedAt:       s.now(),
	}
	created, err := s.repo.CreateOpenCase(ctx, &entry)
	if err != nil {
		span.RecordError(err)
		return models.SuspiciousActivity{}, false, storeError("open case", err)
	}
	if !created {
		existing, found, err = s.findOpenCase(ctx, userID, finding.Pattern)
		if err != nil {
			span.RecordError(err)
			return models.SuspiciousActivity{}, false, err
		}
		if !found {
			return models.SuspiciousActivity{}, false, fmt.Errorf("%w: open case for %s/%s rejected but not found", ErrConsistency, userID, finding.Pattern)
		}
		return existing, false, nil
	}

	observability.SuspiciousCasesOpened().WithLabelValues(entry.PatternDetected).Inc()
	s.publish(ctx, dto.EventSuspiciousCreated, entry, "")

	return entry, true, nil
}

func (s *moderationService) findOpenCase(ctx context.Context, userID, pattern string) (models.SuspiciousActivity, bool, error) {
	existing, err := s.repo.FindOpenCase(ctx, userID, pattern)
	switch {
	case err == nil:
		return existing, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.SuspiciousActivity{}, false, nil
	default:
		return models.SuspiciousActivity{}, false, storeError("find open case", err)
	}
}

func (s *moderationService) ListSuspicious(ctx context.Context, req dto.SuspiciousListRequest) (dto.SuspiciousListResponse, error) {
	filter := repository.SuspiciousFilter{
		UserID: strings.TrimSpace(req.UserID),
		Limit:  clampLimit(req.Limit, maxListLimit),
		Offset: req.Offset,
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	for _, raw := range req.Statuses {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		status := models.SuspiciousStatus(raw)
		if !status.Valid() {
			return dto.SuspiciousListResponse{}, validationError("unknown status %q", raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if len(filter.Statuses) == 0 {
		filter.Statuses = []models.SuspiciousStatus{models.SuspiciousPending, models.SuspiciousReviewed}
	}

	if req.MinRiskScore != nil {
		score := *req.MinRiskScore
		if score < 0 || score > 100 {
			return dto.SuspiciousListResponse{}, validationError("min_risk_score must be between 0 and 100")
		}
		filter.MinRiskScore = &score
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.SuspiciousListResponse{}, storeError("list suspicious activities", err)
	}

	responses := make([]dto.SuspiciousResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewSuspiciousResponse(entry))
	}

	return dto.SuspiciousListResponse{Activities: responses, Total: total}, nil
}

func (s *moderationService) UpdateStatus(ctx context.Context, req dto.SuspiciousUpdateRequest) (dto.SuspiciousResponse, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.ReviewedBy = strings.TrimSpace(req.ReviewedBy)

	if err := s.validator.Struct(req); err != nil {
		return dto.SuspiciousResponse{}, wrapValidation(err)
	}
	if req.ReviewedBy == "" {
		return dto.SuspiciousResponse{}, validationError("reviewed_by is required")
	}

	ctx, span := s.tracer.Start(ctx, "moderation.update_status", trace.WithAttributes(
		attribute.String("case.id", req.ID),
		attribute.String("case.status", req.Status),
	))
	defer span.End()

	current, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SuspiciousResponse{}, ErrNotFound
		}
		span.RecordError(err)
		return dto.SuspiciousResponse{}, storeError("load case", err)
	}

	next := models.SuspiciousStatus(req.Status)
	if !current.Status.CanTransitionTo(next) {
		return dto.SuspiciousResponse{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	affected, err := s.repo.UpdateStatus(ctx, current.ID, current.Status, next, req.ReviewedBy, s.now())
	if err != nil {
		span.RecordError(err)
		return dto.SuspiciousResponse{}, storeError("update case status", err)
	}
	if affected == 0 {
		return dto.SuspiciousResponse{}, fmt.Errorf("%w: case %s changed concurrently", ErrInvalidTransition, current.ID)
	}

	updated, err := s.repo.GetByID(ctx, current.ID)
	if err != nil {
		span.RecordError(err)
		return dto.SuspiciousResponse{}, storeError("reload case", err)
	}

	s.logger.Info().
		Str("case_id", updated.ID).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Str("reviewed_by", req.ReviewedBy).
		Msg("suspicious activity case updated")
	s.publish(ctx, dto.EventSuspiciousUpdated, updated, req.ReviewedBy)

	return dto.NewSuspiciousResponse(updated), nil
}

func (s *moderationService) ReviewActivity(ctx context.Context, id, reviewedBy string) (dto.SuspiciousResponse, error) {
	return s.UpdateStatus(ctx, dto.SuspiciousUpdateRequest{
		ID:         id,
		Status:     string(models.SuspiciousReviewed),
		ReviewedBy: reviewedBy,
	})
}

func (s *moderationService) publish(ctx context.Context, eventType string, entry models.SuspiciousActivity, actorID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, dto.ModerationEvent{
		Type:    eventType,
		UserID:  entry.UserID,
		ActorID: actorID,
		Payload: map[string]interface{}{
			"case_id":          entry.ID,
			"status":           string(entry.Status),
			"pattern_detected": entry.PatternDetected,
			"risk_score":       entry.RiskScore,
		},
	})
}
