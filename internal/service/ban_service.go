package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/observability"
	"github.com/noah-isme/legalbot-guard-api/internal/repository"
)

// BanService manages the ban registry.
type BanService interface {
	Ban(ctx context.Context, payload dto.BanCreateRequest) (dto.BanCreateResponse, error)
	Unban(ctx context.Context, userID, unbannedBy string) error
	IsBanned(ctx context.Context, userID string) (dto.BanStatusResponse, error)
	List(ctx context.Context, req dto.BanListRequest) (dto.BanListResponse, error)
	CheckByEmail(ctx context.Context, email string) (dto.CheckBanResponse, error)
}

type banService struct {
	repo      repository.BanRepository
	profiles  repository.ProfileRepository
	audit     AuditSubmitter
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewBanService constructs the ban registry service. audit and events may be nil.
func NewBanService(repo repository.BanRepository, profiles repository.ProfileRepository, audit AuditSubmitter, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) BanService {
	return &banService{
		repo:      repo,
		profiles:  profiles,
		audit:     audit,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "ban_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/legalbot-guard-api/internal/service/ban"),
		now:       utcNow,
	}
}

func (s *banService) Ban(ctx context.Context, payload dto.BanCreateRequest) (dto.BanCreateResponse, error) {
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.BannedBy = strings.TrimSpace(payload.BannedBy)
	payload.BanType = strings.ToLower(strings.TrimSpace(payload.BanType))

	if err := s.validator.Struct(payload); err != nil {
		return dto.BanCreateResponse{}, wrapValidation(err)
	}

	if strings.TrimSpace(payload.Reason) == "" {
		return dto.BanCreateResponse{}, validationError("reason is required")
	}

	now := s.now()
	entry := models.BanEntry{
		UserID:    payload.UserID,
		Reason:    payload.Reason,
		BanType:   models.BanType(payload.BanType),
		BannedBy:  payload.BannedBy,
		Notes:     payload.Notes,
		CreatedAt: now,
	}

	if entry.BanType == models.BanTemporary {
		if payload.DurationHours <= 0 || math.IsInf(payload.DurationHours, 0) || math.IsNaN(payload.DurationHours) {
			return dto.BanCreateResponse{}, validationError("duration_hours must be greater than zero for temporary bans")
		}
		until := now.Add(time.Duration(payload.DurationHours * float64(time.Hour)))
		if !until.After(now) {
			return dto.BanCreateResponse{}, validationError("duration_hours does not yield a future expiry")
		}
		entry.BannedUntil = &until
	}

	ctx, span := s.tracer.Start(ctx, "ban.create", trace.WithAttributes(
		attribute.String("ban.user_id", entry.UserID),
		attribute.String("ban.type", string(entry.BanType)),
	))
	defer span.End()

	if err := s.repo.Upsert(ctx, &entry); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("user_id", entry.UserID).Msg("failed to store ban")
		return dto.BanCreateResponse{}, storeError("ban user", err)
	}

	observability.BanOperations().WithLabelValues("ban").Inc()
	s.logger.Info().
		Str("user_id", entry.UserID).
		Str("ban_type", string(entry.BanType)).
		Str("banned_by", entry.BannedBy).
		Msg("user banned")

	details := map[string]interface{}{
		"target_user_id": entry.UserID,
		"ban_id":         entry.ID,
		"ban_type":       string(entry.BanType),
		"reason":         entry.Reason,
	}
	if entry.BannedUntil != nil {
		details["banned_until"] = entry.BannedUntil.Format(time.RFC3339)
	}
	s.submitAudit(ctx, entry.BannedBy, "ban_user", details)
	s.publish(ctx, dto.EventUserBanned, entry.UserID, entry.BannedBy, details)

	return dto.BanCreateResponse{
		BanID:       entry.ID,
		UserID:      entry.UserID,
		BanType:     string(entry.BanType),
		BannedUntil: entry.BannedUntil,
	}, nil
}

// Unban hard-deletes the ban and verifies no row survives. A delete that
// touched nothing or left a row behind is a consistency failure.
func (s *banService) Unban(ctx context.Context, userID, unbannedBy string) error {
	userID = strings.TrimSpace(userID)
	unbannedBy = strings.TrimSpace(unbannedBy)
	if userID == "" {
		return validationError("user_id is required")
	}
	if unbannedBy == "" {
		return validationError("unbanned_by is required")
	}

	ctx, span := s.tracer.Start(ctx, "ban.delete", trace.WithAttributes(
		attribute.String("ban.user_id", userID),
	))
	defer span.End()

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		span.RecordError(err)
		return storeError("load ban", err)
	}

	affected, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return storeError("unban user", err)
	}

	remaining, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return storeError("verify unban", err)
	}

	if affected == 0 || remaining > 0 {
		span.RecordError(ErrConsistency)
		s.logger.Error().
			Str("user_id", userID).
			Int64("rows_deleted", affected).
			Int64("rows_remaining", remaining).
			Msg("unban post-condition failed")
		return ErrConsistency
	}

	observability.BanOperations().WithLabelValues("unban").Inc()
	s.logger.Info().Str("user_id", userID).Str("unbanned_by", unbannedBy).Msg("user unbanned")

	details := map[string]interface{}{
		"target_user_id": userID,
		"ban_id":         existing.ID,
		"ban_type":       string(existing.BanType),
	}
	s.submitAudit(ctx, unbannedBy, "unban_user", details)
	s.publish(ctx, dto.EventUserUnbanned, userID, unbannedBy, details)

	return nil
}

func (s *banService) IsBanned(ctx context.Context, userID string) (dto.BanStatusResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return dto.BanStatusResponse{}, validationError("user_id is required")
	}

	entry, err := s.repo.FindActiveByUserID(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BanStatusResponse{Banned: false}, nil
		}
		return dto.BanStatusResponse{}, storeError("check ban", err)
	}

	return dto.NewBanStatusResponse(entry), nil
}

func (s *banService) List(ctx context.Context, req dto.BanListRequest) (dto.BanListResponse, error) {
	now := s.now()
	filter := repository.BanFilter{
		IncludeExpired: req.IncludeExpired,
		Now:            now,
		Limit:          clampLimit(req.Limit, maxListLimit),
		Offset:         req.Offset,
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if raw := strings.ToLower(strings.TrimSpace(req.BanType)); raw != "" {
		banType := models.BanType(raw)
		if !banType.Valid() {
			return dto.BanListResponse{}, validationError("unknown ban_type %q", raw)
		}
		filter.BanType = banType
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.BanListResponse{}, storeError("list bans", err)
	}

	responses := make([]dto.BanResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewBanResponse(entry, now))
	}

	return dto.BanListResponse{BannedUsers: responses, Total: total}, nil
}

// CheckByEmail answers the pre-login gate: whether the account exists and is
// currently banned.
func (s *banService) CheckByEmail(ctx context.Context, email string) (dto.CheckBanResponse, error) {
	payload := dto.CheckBanRequest{Email: strings.ToLower(strings.TrimSpace(email))}
	if err := s.validator.Struct(payload); err != nil {
		return dto.CheckBanResponse{}, wrapValidation(err)
	}

	profile, err := s.profiles.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckBanResponse{UserExists: false, IsBanned: false}, nil
		}
		return dto.CheckBanResponse{}, storeError("lookup profile", err)
	}

	status, err := s.IsBanned(ctx, profile.ID)
	if err != nil {
		return dto.CheckBanResponse{}, err
	}

	response := dto.CheckBanResponse{UserExists: true, IsBanned: status.Banned}
	if status.Banned {
		response.BanInfo = &status
	}
	return response, nil
}

func (s *banService) submitAudit(ctx context.Context, actorID, action string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Submit(ctx, dto.ActivityCreateRequest{
		UserID:       actorID,
		ActivityType: string(models.ActivityAdminAction),
		Action:       action,
		Details:      details,
		RiskLevel:    string(models.RiskLow),
	})
}

func (s *banService) publish(ctx context.Context, eventType, userID, actorID string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, dto.ModerationEvent{
		Type:    eventType,
		UserID:  userID,
		ActorID: actorID,
		Payload: payload,
	})
}
