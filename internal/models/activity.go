package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType enumerates the user actions the product reports.
type ActivityType string

const (
	ActivityLogin       ActivityType = "login"
	ActivityLogout      ActivityType = "logout"
	ActivityQuery       ActivityType = "query"
	ActivityUpload      ActivityType = "upload"
	ActivityDelete      ActivityType = "delete"
	ActivityUpdate      ActivityType = "update"
	ActivityView        ActivityType = "view"
	ActivityDownload    ActivityType = "download"
	ActivityExport      ActivityType = "export"
	ActivityAdminAction ActivityType = "admin_action"
)

// Valid reports whether the activity type is a known value.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityLogin, ActivityLogout, ActivityQuery, ActivityUpload, ActivityDelete,
		ActivityUpdate, ActivityView, ActivityDownload, ActivityExport, ActivityAdminAction:
		return true
	}
	return false
}

// RiskLevel is the coarse risk label attached to an activity by its reporter.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether the risk level is a known value.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// ActivityRecord is an append-only audit entry for one user action.
type ActivityRecord struct {
	ID           string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       *string           `gorm:"type:varchar(64);index:idx_activity_user_created,priority:1" json:"user_id"`
	ActivityType ActivityType      `gorm:"type:varchar(32);not null;index" json:"activity_type"`
	Action       string            `gorm:"size:255;not null" json:"action"`
	Details      datatypes.JSONMap `gorm:"type:json" json:"details"`
	IPAddress    string            `gorm:"size:64" json:"ip_address"`
	UserAgent    string            `gorm:"size:512" json:"user_agent"`
	RiskLevel    RiskLevel         `gorm:"type:varchar(16);not null;default:low;index" json:"risk_level"`
	CreatedAt    time.Time         `gorm:"index:idx_activity_user_created,priority:2" json:"created_at"`
}

// TableName pins the table name used by the activity log.
func (ActivityRecord) TableName() string {
	return "activity_logs"
}

// Actor returns the owning user id or an empty string for system records.
func (a ActivityRecord) Actor() string {
	if a.UserID == nil {
		return ""
	}
	return *a.UserID
}
