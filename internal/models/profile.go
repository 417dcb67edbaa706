package models

import "time"

// Role is the closed set of product roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
)

// ParseRole normalises a raw role string. Unknown values return false.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleEditor, RoleUser:
		return Role(raw), true
	}
	return "", false
}

// Profile mirrors the identity provider's user table. This service reads it but
// never writes it outside of tests.
type Profile struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Role      Role      `gorm:"type:varchar(16);not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the profile table name.
func (Profile) TableName() string {
	return "profiles"
}
