package models

import (
	"time"

	"gorm.io/datatypes"
)

// SuspiciousStatus is the review state of a suspicious activity case.
type SuspiciousStatus string

const (
	SuspiciousPending   SuspiciousStatus = "pending"
	SuspiciousReviewed  SuspiciousStatus = "reviewed"
	SuspiciousDismissed SuspiciousStatus = "dismissed"
	SuspiciousEscalated SuspiciousStatus = "escalated"
)

// Valid reports whether the status is a known value.
func (s SuspiciousStatus) Valid() bool {
	switch s {
	case SuspiciousPending, SuspiciousReviewed, SuspiciousDismissed, SuspiciousEscalated:
		return true
	}
	return false
}

// Open reports whether the case still awaits a final decision.
func (s SuspiciousStatus) Open() bool {
	return s == SuspiciousPending || s == SuspiciousEscalated
}

// CanTransitionTo encodes the review state machine.
func (s SuspiciousStatus) CanTransitionTo(next SuspiciousStatus) bool {
	switch s {
	case SuspiciousPending:
		return next == SuspiciousReviewed || next == SuspiciousDismissed || next == SuspiciousEscalated
	case SuspiciousEscalated:
		return next == SuspiciousReviewed || next == SuspiciousDismissed
	default:
		return false
	}
}

// SuspiciousActivity is a flagged case opened by the risk evaluator.
// RiskScore and PatternDetected are immutable after creation.
type SuspiciousActivity struct {
	ID              string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string            `gorm:"type:varchar(64);not null;index" json:"user_id"`
	ActivityType    ActivityType      `gorm:"type:varchar(32);not null" json:"activity_type"`
	Description     string            `gorm:"type:text" json:"description"`
	RiskScore       float64           `gorm:"not null;index" json:"risk_score"`
	PatternDetected string            `gorm:"size:64;not null;index" json:"pattern_detected"`
	Status          SuspiciousStatus  `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Details         datatypes.JSONMap `gorm:"type:json" json:"details"`
	ReviewedBy      *string           `gorm:"type:varchar(64)" json:"reviewed_by"`
	ReviewedAt      *time.Time        `json:"reviewed_at"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
}

// TableName pins the suspicious activity table name.
func (SuspiciousActivity) TableName() string {
	return "suspicious_activities"
}
