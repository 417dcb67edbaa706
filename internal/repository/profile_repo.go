package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

// ProfileRepository reads identity-provider profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (models.Profile, error)
	GetByEmail(ctx context.Context, email string) (models.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository constructs a repository backed by GORM.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (models.Profile, error) {
	var profile models.Profile
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("email = ?", normalized).First(&profile).Error; err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}
