package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// ActivityCreateRequest captures an activity report from any product surface.
type ActivityCreateRequest struct {
	UserID       string                 `json:"user_id" validate:"required,max=64"`
	ActivityType string                 `json:"activity_type" validate:"required,oneof=login logout query upload delete update view download export admin_action"`
	Action       string                 `json:"action" validate:"required,max=255"`
	Details      map[string]interface{} `json:"details"`
	IPAddress    string                 `json:"ip_address" validate:"omitempty,max=64"`
	UserAgent    string                 `json:"user_agent" validate:"omitempty,max=512"`
	RiskLevel    string                 `json:"risk_level" validate:"omitempty,oneof=low medium high"`
}

// ActivityCreateResponse is returned after a successful append.
type ActivityCreateResponse struct {
	ActivityID string `json:"activity_id"`
}

// ActivityListRequest defines filters for reading the activity log.
type ActivityListRequest struct {
	UserID       string
	ActivityType string
	RiskLevel    string
	Start        *time.Time
	End          *time.Time
	Limit        int
	Offset       int
}

// ActivityResponse serializes an activity record.
type ActivityResponse struct {
	ID           string                 `json:"id"`
	UserID       *string                `json:"user_id"`
	ActivityType string                 `json:"activity_type"`
	Action       string                 `json:"action"`
	Details      map[string]interface{} `json:"details"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	RiskLevel    string                 `json:"risk_level"`
	Client       *ClientInfo            `json:"client,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ClientInfo summarises the user agent of the reporting client.
type ClientInfo struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	Device         string `json:"device"`
	Bot            bool   `json:"bot"`
}

// ActivityListResponse wraps a page of activity records.
type ActivityListResponse struct {
	Activities []ActivityResponse `json:"activities"`
	Total      int64              `json:"total"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(record models.ActivityRecord) ActivityResponse {
	return ActivityResponse{
		ID:           record.ID,
		UserID:       record.UserID,
		ActivityType: string(record.ActivityType),
		Action:       record.Action,
		Details:      metadataFromJSON(record.Details),
		IPAddress:    record.IPAddress,
		UserAgent:    record.UserAgent,
		RiskLevel:    string(record.RiskLevel),
		CreatedAt:    record.CreatedAt,
	}
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}
