package repository

import (
	"context"
	"errors"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// SettingsRepository reads and writes the single settings row.
type SettingsRepository interface {
	// Get returns nil, nil when no row exists yet.
	Get(ctx context.Context) (*models.Settings, error)
	Create(ctx context.Context, s *models.Settings) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	if err := r.db.WithContext(ctx).Order("id ASC").First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &s, nil
}

func (r *settingsRepository) Create(ctx context.Context, s *models.Settings) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *settingsRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(&models.Settings{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
