package repository

import (
	"context"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// DisputeRepository defines persistence operations for disputes.
type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uint) (*models.Dispute, error)
	List(ctx context.Context, status models.DisputeStatus, limit int) ([]models.Dispute, error)
	Resolve(ctx context.Context, id uint, fields map[string]interface{}) (bool, error)
	Count(ctx context.Context, status models.DisputeStatus) (int64, error)
}

type disputeRepository struct {
	db *gorm.DB
}

func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	if err := r.db.WithContext(ctx).Omit("Contract").Create(d).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *disputeRepository) GetByID(ctx context.Context, id uint) (*models.Dispute, error) {
	var d models.Dispute
	if err := r.db.WithContext(ctx).Preload("Contract").First(&d, id).Error; err != nil {
		return nil, lookupError(err, "Dispute", id)
	}
	return &d, nil
}

func (r *disputeRepository) List(ctx context.Context, status models.DisputeStatus, limit int) ([]models.Dispute, error) {
	var out []models.Dispute
	q := r.db.WithContext(ctx).Preload("Contract")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Limit(clampLimit(limit, 50, 200)).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// Resolve applies fields only to an open dispute.
func (r *disputeRepository) Resolve(ctx context.Context, id uint, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Dispute{}).
		Where("id = ? AND status = ?", id, models.DisputeOpen).
		Updates(fields)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *disputeRepository) Count(ctx context.Context, status models.DisputeStatus) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Dispute{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
