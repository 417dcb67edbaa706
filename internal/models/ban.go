package models

import "time"

// BanType distinguishes time-boxed bans from permanent ones.
type BanType string

const (
	BanTemporary BanType = "temporary"
	BanPermanent BanType = "permanent"
)

// Valid reports whether the ban type is a known value.
func (t BanType) Valid() bool {
	return t == BanTemporary || t == BanPermanent
}

// BanStatus is derived from a ban row at read time and never stored.
type BanStatus string

const (
	BanStatusActive    BanStatus = "active"
	BanStatusPermanent BanStatus = "permanent"
	BanStatusExpired   BanStatus = "expired"
)

// BanEntry marks a user as blocked. At most one row exists per user.
type BanEntry struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id"`
	Reason      string     `gorm:"type:text;not null" json:"reason"`
	BanType     BanType    `gorm:"type:varchar(16);not null" json:"ban_type"`
	BannedUntil *time.Time `gorm:"index" json:"banned_until"`
	BannedBy    string     `gorm:"type:varchar(64);not null" json:"banned_by"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName pins the ban registry table name.
func (BanEntry) TableName() string {
	return "ban_entries"
}

// Status derives the ban status at the given instant.
func (b BanEntry) Status(now time.Time) BanStatus {
	if b.BanType == BanPermanent {
		return BanStatusPermanent
	}
	if b.BannedUntil != nil && b.BannedUntil.Before(now) {
		return BanStatusExpired
	}
	return BanStatusActive
}

// ActiveAt reports whether the ban still blocks the user at the given instant.
func (b BanEntry) ActiveAt(now time.Time) bool {
	return b.Status(now) != BanStatusExpired
}
