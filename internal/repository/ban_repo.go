package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// BanFilter narrows ban registry listings. Now anchors expiry evaluation.
type BanFilter struct {
	BanType        models.BanType
	IncludeExpired bool
	Now            time.Time
	Limit          int
	Offset         int
}

// BanRepository persists the ban registry. The unique index on user_id keeps at
// most one row per user; writers upsert instead of locking.
type BanRepository interface {
	Upsert(ctx context.Context, entry *models.BanEntry) error
	FindByUserID(ctx context.Context, userID string) (models.BanEntry, error)
	FindActiveByUserID(ctx context.Context, userID string, now time.Time) (models.BanEntry, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, filter BanFilter) ([]models.BanEntry, int64, error)
}

type banRepository struct {
	db *gorm.DB
}

// NewBanRepository constructs a ban repository backed by GORM.
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

func (r *banRepository) Upsert(ctx context.Context, entry *models.BanEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "ban_type", "banned_until", "banned_by", "notes", "created_at"}),
		}).Create(entry).Error
		if err != nil {
			return err
		}

		var stored models.BanEntry
		if err := tx.Where("user_id = ?", entry.UserID).First(&stored).Error; err != nil {
			return err
		}
		*entry = stored
		return nil
	})
}

func (r *banRepository) FindByUserID(ctx context.Context, userID string) (models.BanEntry, error) {
	var entry models.BanEntry
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&entry).Error; err != nil {
		return models.BanEntry{}, err
	}
	return entry, nil
}

func (r *banRepository) FindActiveByUserID(ctx context.Context, userID string, now time.Time) (models.BanEntry, error) {
	var entry models.BanEntry
	err := activeScope(r.db.WithContext(ctx), now).
		Where("user_id = ?", userID).
		First(&entry).Error
	if err != nil {
		return models.BanEntry{}, err
	}
	return entry, nil
}

func (r *banRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.BanEntry{})
	return result.RowsAffected, result.Error
}

func (r *banRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BanEntry{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *banRepository) List(ctx context.Context, filter BanFilter) ([]models.BanEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BanEntry{})

	if filter.BanType != "" {
		query = query.Where("ban_type = ?", string(filter.BanType))
	}
	if !filter.IncludeExpired {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		query = activeScope(query, now)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var entries []models.BanEntry
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// activeScope applies lazy expiry: expired temporary rows stay in the table but
// never read as active.
func activeScope(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("(ban_type = ? OR banned_until IS NULL OR banned_until > ?)", string(models.BanPermanent), now.UTC())
}
