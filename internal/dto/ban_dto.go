package dto

import (
	"time"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// BanCreateRequest captures a ban issued by an administrator.
type BanCreateRequest struct {
	UserID        string  `json:"user_id" validate:"required,max=64"`
	Reason        string  `json:"reason" validate:"required,max=2000"`
	BanType       string  `json:"ban_type" validate:"required,oneof=temporary permanent"`
	// DurationHours is capped at one hundred years.
	DurationHours float64 `json:"duration_hours" validate:"omitempty,gte=0,lte=876000"`
	BannedBy      string  `json:"banned_by" validate:"required,max=64"`
	Notes         string  `json:"notes" validate:"omitempty,max=5000"`
}

// BanCreateResponse is returned after a ban is stored.
type BanCreateResponse struct {
	BanID       string     `json:"ban_id"`
	UserID      string     `json:"user_id"`
	BanType     string     `json:"ban_type"`
	BannedUntil *time.Time `json:"banned_until"`
}

// BanListRequest defines filters for the ban registry listing.
type BanListRequest struct {
	BanType        string
	IncludeExpired bool
	Limit          int
	Offset         int
}

// BanResponse serializes a ban row with its derived status.
type BanResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Reason      string     `json:"reason"`
	BanType     string     `json:"ban_type"`
	BannedUntil *time.Time `json:"banned_until"`
	BannedBy    string     `json:"banned_by"`
	Notes       string     `json:"notes"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BanListResponse wraps the ban registry listing.
type BanListResponse struct {
	BannedUsers []BanResponse `json:"banned_users"`
	Total       int64         `json:"total"`
}

// BanStatusResponse answers "is this user blocked right now".
type BanStatusResponse struct {
	Banned      bool       `json:"banned"`
	BanType     string     `json:"ban_type,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
}

// CheckBanRequest is the public pre-login lookup payload.
type CheckBanRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// CheckBanResponse reports whether the account exists and is blocked.
type CheckBanResponse struct {
	UserExists bool               `json:"userExists"`
	IsBanned   bool               `json:"isBanned"`
	BanInfo    *BanStatusResponse `json:"banInfo,omitempty"`
}

// NewBanResponse converts a ban model into a DTO using the supplied instant for status.
func NewBanResponse(entry models.BanEntry, now time.Time) BanResponse {
	return BanResponse{
		ID:          entry.ID,
		UserID:      entry.UserID,
		Reason:      entry.Reason,
		BanType:     string(entry.BanType),
		BannedUntil: entry.BannedUntil,
		BannedBy:    entry.BannedBy,
		Notes:       entry.Notes,
		Status:      string(entry.Status(now)),
		CreatedAt:   entry.CreatedAt,
	}
}

// NewBanStatusResponse builds the blocked view of an active ban.
func NewBanStatusResponse(entry models.BanEntry) BanStatusResponse {
	return BanStatusResponse{
		Banned:      true,
		BanType:     string(entry.BanType),
		Reason:      entry.Reason,
		BannedUntil: entry.BannedUntil,
	}
}
