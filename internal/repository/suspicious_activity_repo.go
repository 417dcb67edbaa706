package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// SuspiciousFilter narrows the moderation queue.
type SuspiciousFilter struct {
	UserID       string
	Statuses     []models.SuspiciousStatus
	MinRiskScore *float64
	Limit        int
	Offset       int
}

// SuspiciousActivityRepository persists suspicious activity cases. Rows are never deleted.
type SuspiciousActivityRepository interface {
	Create(ctx context.Context, entry *models.SuspiciousActivity) error
	// CreateOpenCase inserts a pending case unless the open-case index already
	// holds one for the same user and pattern. It reports whether a row was written.
	CreateOpenCase(ctx context.Context, entry *models.SuspiciousActivity) (bool, error)
	GetByID(ctx context.Context, id string) (models.SuspiciousActivity, error)
	FindOpenCase(ctx context.Context, userID, pattern string) (models.SuspiciousActivity, error)
	List(ctx context.Context, filter SuspiciousFilter) ([]models.SuspiciousActivity, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to models.SuspiciousStatus, reviewedBy string, reviewedAt time.Time) (int64, error)
}

type suspiciousActivityRepository struct {
	db *gorm.DB
}

// NewSuspiciousActivityRepository constructs the repository.
func NewSuspiciousActivityRepository(db *gorm.DB) SuspiciousActivityRepository {
	return &suspiciousActivityRepository{db: db}
}

func (r *suspiciousActivityRepository) Create(ctx context.Context, entry *models.SuspiciousActivity) error {
	prepareCase(entry)
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *suspiciousActivityRepository) CreateOpenCase(ctx context.Context, entry *models.SuspiciousActivity) (bool, error) {
	prepareCase(entry)
	entry.Status = models.SuspiciousPending
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func prepareCase(entry *models.SuspiciousActivity) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.SuspiciousPending
	}
}

func (r *suspiciousActivityRepository) GetByID(ctx context.Context, id string) (models.SuspiciousActivity, error) {
	var entry models.SuspiciousActivity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return models.SuspiciousActivity{}, err
	}
	return entry, nil
}

func (r *suspiciousActivityRepository) FindOpenCase(ctx context.Context, userID, pattern string) (models.SuspiciousActivity, error) {
	var entry models.SuspiciousActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND pattern_detected = ?", userID, pattern).
		Where("status IN ?", []string{string(models.SuspiciousPending), string(models.SuspiciousEscalated)}).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		return models.SuspiciousActivity{}, err
	}
	return entry, nil
}

func (r *suspiciousActivityRepository) List(ctx context.Context, filter SuspiciousFilter) ([]models.SuspiciousActivity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SuspiciousActivity{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.MinRiskScore != nil {
		query = query.Where("risk_score >= ?", *filter.MinRiskScore)
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

	var entries []models.SuspiciousActivity
	if err := query.Order("risk_score DESC").Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// UpdateStatus applies a conditional transition. Zero rows affected means the
// case was not in the expected state.
func (r *suspiciousActivityRepository) UpdateStatus(ctx context.Context, id string, from, to models.SuspiciousStatus, reviewedBy string, reviewedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SuspiciousActivity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":      string(to),
			"reviewed_by": reviewedBy,
			"reviewed_at": reviewedAt.UTC(),
		})
	return result.RowsAffected, result.Error
}
