package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/observability"
	"github.com/noah-isme/legalbot-guard-api/internal/repository"
	"github.com/noah-isme/legalbot-guard-api/internal/risk"
)

// CaseOpener turns a risk finding into a suspicious activity case.
type CaseOpener interface {
	OpenCase(ctx context.Context, record models.ActivityRecord, finding risk.Finding) (models.SuspiciousActivity, bool, error)
}

// ActivityRecorder appends entries to the activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, payload dto.ActivityCreateRequest) (models.ActivityRecord, error)
}

// ActivityService exposes the activity store.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	Get(ctx context.Context, id string) (dto.ActivityResponse, error)
}

// ActivityServiceConfig tunes query caps and the history fed to the evaluator.
type ActivityServiceConfig struct {
	QueryCap     int
	HistoryLimit int
}

type activityService struct {
	repo         repository.ActivityLogRepository
	bans         repository.BanRepository
	evaluator    *risk.Evaluator
	cases        CaseOpener
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	queryCap     int
	historyLimit int
	now          func() time.Time
}

// NewActivityService constructs the activity store service. The evaluator and
// case opener are optional; without them no cases are opened.
func NewActivityService(repo repository.ActivityLogRepository, bans repository.BanRepository, evaluator *risk.Evaluator, cases CaseOpener, validate *validator.Validate, cfg ActivityServiceConfig, logger zerolog.Logger) ActivityService {
	if cfg.QueryCap <= 0 {
		cfg.QueryCap = maxListLimit
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 200
	}

	return &activityService{
		repo:         repo,
		bans:         bans,
		evaluator:    evaluator,
		cases:        cases,
		validator:    validate,
		logger:       logger.With().Str("component", "activity_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/legalbot-guard-api/internal/service/activity"),
		queryCap:     cfg.QueryCap,
		historyLimit: cfg.HistoryLimit,
		now:          utcNow,
	}
}

func (s *activityService) Record(ctx context.Context, payload dto.ActivityCreateRequest) (models.ActivityRecord, error) {
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.ActivityType = strings.TrimSpace(payload.ActivityType)
	payload.RiskLevel = strings.ToLower(strings.TrimSpace(payload.RiskLevel))

	if err := s.validator.Struct(payload); err != nil {
		return models.ActivityRecord{}, wrapValidation(err)
	}

	if strings.TrimSpace(payload.Action) == "" {
		return models.ActivityRecord{}, validationError("action is required")
	}

	ctx, span := s.tracer.Start(ctx, "activity.record", trace.WithAttributes(
		attribute.String("activity.user_id", payload.UserID),
		attribute.String("activity.type", payload.ActivityType),
	))
	defer span.End()

	now := s.now()
	if s.bans != nil {
		ban, err := s.bans.FindActiveByUserID(ctx, payload.UserID, now)
		switch {
		case err == nil:
			span.SetStatus(codes.Error, "actor banned")
			return models.ActivityRecord{}, &BannedError{Ban: ban}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			span.RecordError(err)
			return models.ActivityRecord{}, storeError("check ban", err)
		}
	}

	riskLevel := models.RiskLevel(payload.RiskLevel)
	if riskLevel == "" {
		riskLevel = models.RiskLow
	}

	details := datatypes.JSONMap{}
	for key, value := range payload.Details {
		details[key] = value
	}

	userID := payload.UserID
	record := models.ActivityRecord{
		UserID:       &userID,
		ActivityType: models.ActivityType(payload.ActivityType),
		Action:       payload.Action,
		Details:      details,
		IPAddress:    strings.TrimSpace(payload.IPAddress),
		UserAgent:    strings.TrimSpace(payload.UserAgent),
		RiskLevel:    riskLevel,
		CreatedAt:    now,
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to persist activity")
		return models.ActivityRecord{}, storeError("record activity", err)
	}

	observability.ActivitiesRecorded().WithLabelValues(string(record.ActivityType), string(record.RiskLevel)).Inc()

	s.evaluate(ctx, record)

	return record, nil
}

// evaluate runs the risk stage after the append. Failures are logged and
// counted but never surface to the caller.
func (s *activityService) evaluate(ctx context.Context, record models.ActivityRecord) {
	if s.evaluator == nil || s.cases == nil {
		return
	}

	since := record.CreatedAt.Add(-s.evaluator.MaxWindow())
	history, err := s.repo.RecentByUser(ctx, record.Actor(), since, s.historyLimit)
	if err != nil {
		observability.RiskEvaluationFailures().Inc()
		s.logger.Warn().Err(err).Str("activity_id", record.ID).Msg("failed to load activity history for risk evaluation")
		return
	}

	finding := s.evaluator.Evaluate(record, history)
	if finding == nil {
		return
	}

	entry, created, err := s.cases.OpenCase(ctx, record, *finding)
	if err != nil {
		observability.RiskEvaluationFailures().Inc()
		s.logger.Warn().Err(err).
			Str("activity_id", record.ID).
			Str("pattern", finding.Pattern).
			Msg("failed to open suspicious activity case")
		return
	}

	if created {
		s.logger.Info().
			Str("case_id", entry.ID).
			Str("user_id", entry.UserID).
			Str("pattern", entry.PatternDetected).
			Float64("risk_score", entry.RiskScore).
			Msg("suspicious activity case opened")
	}
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		UserID: strings.TrimSpace(req.UserID),
		Start:  req.Start,
		End:    req.End,
		Limit:  clampLimit(req.Limit, s.queryCap),
		Offset: req.Offset,
	}

	if raw := strings.TrimSpace(req.ActivityType); raw != "" {
		activityType := models.ActivityType(raw)
		if !activityType.Valid() {
			return dto.ActivityListResponse{}, validationError("unknown activity_type %q", raw)
		}
		filter.ActivityType = activityType
	}
	if raw := strings.TrimSpace(req.RiskLevel); raw != "" {
		level := models.RiskLevel(strings.ToLower(raw))
		if !level.Valid() {
			return dto.ActivityListResponse{}, validationError("unknown risk_level %q", raw)
		}
		filter.RiskLevel = level
	}
	if filter.Start != nil && filter.End != nil && filter.Start.After(*filter.End) {
		return dto.ActivityListResponse{}, validationError("start must not be after end")
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, storeError("list activities", err)
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, newActivityView(entry))
	}

	return dto.ActivityListResponse{
		Activities: responses,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func (s *activityService) Get(ctx context.Context, id string) (dto.ActivityResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dto.ActivityResponse{}, validationError("activity id is required")
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrNotFound
		}
		return dto.ActivityResponse{}, storeError("get activity", err)
	}

	return newActivityView(entry), nil
}

// newActivityView adds the parsed client summary to the stored record.
func newActivityView(record models.ActivityRecord) dto.ActivityResponse {
	response := dto.NewActivityResponse(record)
	if record.UserAgent != "" {
		client := describeClient(record.UserAgent)
		response.Client = &client
	}
	return response
}
