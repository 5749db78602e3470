package repository

import (
	"context"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	SetSuspended(ctx context.Context, id uint, suspended bool) error
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, lookupError(err, "Profile", id)
	}
	return &p, nil
}

func (r *profileRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Profile, error) {
	var p models.Profile
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		return nil, lookupError(err, "Profile", id)
	}
	return &p, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return writeError(err, "Profile already exists.")
	}
	return nil
}

func (r *profileRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	return nil
}

func (r *profileRepository) SetSuspended(ctx context.Context, id uint, suspended bool) error {
	return r.Update(ctx, id, map[string]interface{}{"is_suspended": suspended})
}

func (r *profileRepository) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	var rows []struct {
		Role  models.Role
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Select("role, COUNT(*) AS count").Group("role").Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}
