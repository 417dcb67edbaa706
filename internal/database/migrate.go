package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// OpenCaseIndex keeps at most one pending or escalated case per user and pattern.
const OpenCaseIndex = "ux_suspicious_open_case"

// Migrate creates or updates the moderation tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Profile{},
		&models.ActivityRecord{},
		&models.BanEntry{},
		&models.SuspiciousActivity{},
	); err != nil {
		return err
	}

	// Partial unique indexes are supported by both postgres and sqlite.
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS " + OpenCaseIndex +
		" ON suspicious_activities (user_id, pattern_detected)" +
		" WHERE status IN ('pending', 'escalated')").Error
}
