package dto

import "time"

// Moderation event types fanned out to admin dashboards.
const (
	EventSuspiciousCreated = "suspicious.created"
	EventSuspiciousUpdated = "suspicious.updated"
	EventUserBanned        = "user.banned"
	EventUserUnbanned      = "user.unbanned"
	EventBackupExported    = "backup.exported"
)

// ModerationEvent is the payload delivered on the realtime moderation channel.
type ModerationEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	UserID     string                 `json:"user_id,omitempty"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// BackupCounts reports how many rows of each table were exported.
type BackupCounts struct {
	Activities int `json:"activities"`
	Bans       int `json:"bans"`
	Suspicious int `json:"suspicious"`
}

// BackupResponse describes a completed moderation export.
type BackupResponse struct {
	FileName    string       `json:"file_name"`
	URL         string       `json:"url,omitempty"`
	Counts      BackupCounts `json:"counts"`
	GeneratedAt time.Time    `json:"generated_at"`
	Document    interface{}  `json:"document,omitempty"`
}
