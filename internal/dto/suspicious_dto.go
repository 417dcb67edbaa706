package dto

import (
	"time"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// SuspiciousListRequest defines filters for the moderation queue.
type SuspiciousListRequest struct {
	UserID       string
	Statuses     []string
	MinRiskScore *float64
	Limit        int
	Offset       int
}

// SuspiciousUpdateRequest moves a case through the review state machine.
type SuspiciousUpdateRequest struct {
	ID         string `json:"id" validate:"required,max=36"`
	Status     string `json:"status" validate:"required,oneof=pending reviewed dismissed escalated"`
	ReviewedBy string `json:"reviewed_by" validate:"omitempty,max=64"`
}

// SuspiciousResponse serializes a suspicious activity case.
type SuspiciousResponse struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	ActivityType    string                 `json:"activity_type"`
	Description     string                 `json:"description"`
	RiskScore       float64                `json:"risk_score"`
	PatternDetected string                 `json:"pattern_detected"`
	Status          string                 `json:"status"`
	Details         map[string]interface{} `json:"details"`
	ReviewedBy      *string                `json:"reviewed_by"`
	ReviewedAt      *time.Time             `json:"reviewed_at"`
	CreatedAt       time.Time              `json:"created_at"`
}

// SuspiciousListResponse wraps the moderation queue.
type SuspiciousListResponse struct {
	Activities []SuspiciousResponse `json:"activities"`
	Total      int64                `json:"total"`
}

// SuspiciousUpdateResponse wraps the updated case.
type SuspiciousUpdateResponse struct {
	Activity SuspiciousResponse `json:"activity"`
}

// NewSuspiciousResponse converts a model into a DTO.
func NewSuspiciousResponse(model models.SuspiciousActivity) SuspiciousResponse {
	return SuspiciousResponse{
		ID:              model.ID,
		UserID:          model.UserID,
		ActivityType:    string(model.ActivityType),
		Description:     model.Description,
		RiskScore:       model.RiskScore,
		PatternDetected: model.PatternDetected,
		Status:          string(model.Status),
		Details:         metadataFromJSON(model.Details),
		ReviewedBy:      model.ReviewedBy,
		ReviewedAt:      model.ReviewedAt,
		CreatedAt:       model.CreatedAt,
	}
}
