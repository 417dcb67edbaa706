package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/repository"
)

// BackupStorage stores an exported document and returns its URL.
type BackupStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// BackupService exports the moderation tables as one JSON document.
type BackupService interface {
	Export(ctx context.Context, actorID string) (dto.BackupResponse, error)
}

type backupDocument struct {
	GeneratedAt  time.Time                   `json:"generated_at"`
	GeneratedBy  string                      `json:"generated_by"`
	Activities   []models.ActivityRecord     `json:"activity_logs"`
	Bans         []models.BanEntry           `json:"ban_entries"`
	Suspicious   []models.SuspiciousActivity `json:"suspicious_activities"`
	ActivityCap  int                         `json:"activity_cap"`
	ActivityRows int64                       `json:"activity_rows_total"`
}

type backupService struct {
	activities  repository.ActivityLogRepository
	bans        repository.BanRepository
	cases       repository.SuspiciousActivityRepository
	storage     BackupStorage
	audit       AuditSubmitter
	events      EventPublisher
	activityCap int
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewBackupService constructs the backup exporter. Without storage the
// document is returned inline.
func NewBackupService(activities repository.ActivityLogRepository, bans repository.BanRepository, cases repository.SuspiciousActivityRepository, storage BackupStorage, audit AuditSubmitter, events EventPublisher, activityCap int, logger zerolog.Logger) BackupService {
	if activityCap <= 0 {
		activityCap = maxListLimit
	}
	return &backupService{
		activities:  activities,
		bans:        bans,
		cases:       cases,
		storage:     storage,
		audit:       audit,
		events:      events,
		activityCap: activityCap,
		logger:      logger.With().Str("component", "backup_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/legalbot-guard-api/internal/service/backup"),
		now:         utcNow,
	}
}

func (s *backupService) Export(ctx context.Context, actorID string) (dto.BackupResponse, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return dto.BackupResponse{}, validationError("actor is required")
	}

	ctx, span := s.tracer.Start(ctx, "backup.export", trace.WithAttributes(attribute.String("backup.actor", actorID)))
	defer span.End()

	now := s.now()
	activities, activityTotal, err := s.activities.List(ctx, repository.ActivityLogFilter{Limit: s.activityCap})
	if err != nil {
		span.RecordError(err)
		return dto.BackupResponse{}, storeError("export activities", err)
	}
	bans, _, err := s.bans.List(ctx, repository.BanFilter{IncludeExpired: true, Now: now})
	if err != nil {
		span.RecordError(err)
		return dto.BackupResponse{}, storeError("export bans", err)
	}
	cases, _, err := s.cases.List(ctx, repository.SuspiciousFilter{})
	if err != nil {
		span.RecordError(err)
		return dto.BackupResponse{}, storeError("export suspicious activities", err)
	}

	document := backupDocument{
		GeneratedAt:  now,
		GeneratedBy:  actorID,
		Activities:   activities,
		Bans:         bans,
		Suspicious:   cases,
		ActivityCap:  s.activityCap,
		ActivityRows: activityTotal,
	}

	response := dto.BackupResponse{
		FileName: fmt.Sprintf("moderation-backup-%s.json", now.Format("20060102-150405")),
		Counts: dto.BackupCounts{
			Activities: len(activities),
			Bans:       len(bans),
			Suspicious: len(cases),
		},
		GeneratedAt: now,
	}

	if s.storage != nil {
		payload, err := json.Marshal(document)
		if err != nil {
			span.RecordError(err)
			return dto.BackupResponse{}, fmt.Errorf("encode backup: %w", err)
		}
		url, err := s.storage.Upload(ctx, response.FileName, bytes.NewReader(payload))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "upload failed")
			s.logger.Error().Err(err).Str("file_name", response.FileName).Msg("failed to upload backup")
			return dto.BackupResponse{}, fmt.Errorf("upload backup: %w", err)
		}
		response.URL = url
	} else {
		response.Document = document
	}

	s.logger.Info().
		Str("actor_id", actorID).
		Str("file_name", response.FileName).
		Int("activities", response.Counts.Activities).
		Int("bans", response.Counts.Bans).
		Int("suspicious", response.Counts.Suspicious).
		Msg("moderation backup exported")

	details := map[string]interface{}{
		"file_name":  response.FileName,
		"activities": response.Counts.Activities,
		"bans":       response.Counts.Bans,
		"suspicious": response.Counts.Suspicious,
	}
	if response.URL != "" {
		details["url"] = response.URL
	}

	if s.audit != nil {
		s.audit.Submit(ctx, dto.ActivityCreateRequest{
			UserID:       actorID,
			ActivityType: string(models.ActivityExport),
			Action:       "export_backup",
			Details:      details,
			RiskLevel:    string(models.RiskMedium),
		})
	}
	if s.events != nil {
		s.events.Publish(ctx, dto.ModerationEvent{
			Type:    dto.EventBackupExported,
			ActorID: actorID,
			Payload: details,
		})
	}

	return response, nil
}
