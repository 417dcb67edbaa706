package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// ActivityLogFilter narrows activity log queries.
type ActivityLogFilter struct {
	UserID       string
	ActivityType models.ActivityType
	RiskLevel    models.RiskLevel
	Start        *time.Time
	End          *time.Time
	Limit        int
	Offset       int
}

// ActivityLogRepository persists the append-only activity log.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityRecord) error
	GetByID(ctx context.Context, id string) (models.ActivityRecord, error)
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityRecord, int64, error)
	RecentByUser(ctx context.Context, userID string, since time.Time, limit int) ([]models.ActivityRecord, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityRecord) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) GetByID(ctx context.Context, id string) (models.ActivityRecord, error) {
	var entry models.ActivityRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return models.ActivityRecord{}, err
	}
	return entry, nil
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityRecord{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ActivityType != "" {
		query = query.Where("activity_type = ?", string(filter.ActivityType))
	}
	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", string(filter.RiskLevel))
	}
	if filter.Start != nil {
		query = query.Where("created_at >= ?", filter.Start.UTC())
	}
	if filter.End != nil {
		query = query.Where("created_at <= ?", filter.End.UTC())
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

	var entries []models.ActivityRecord
	if err := query.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *activityLogRepository) RecentByUser(ctx context.Context, userID string, since time.Time, limit int) ([]models.ActivityRecord, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.ActivityRecord
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
