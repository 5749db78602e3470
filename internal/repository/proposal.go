package repository

import (
	"context"
	"errors"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// ProposalRepository defines persistence operations for proposals.
type ProposalRepository interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, id uint) (*models.Proposal, error)
	// FindActive returns the freelancer's active proposal on the job, or nil.
	FindActive(ctx context.Context, jobID, freelancerID uint) (*models.Proposal, error)
	ListByFreelancer(ctx context.Context, freelancerID uint, status models.ProposalStatus) ([]models.Proposal, error)
	TransitionStatus(ctx context.Context, id uint, from []models.ProposalStatus, to models.ProposalStatus) (bool, error)
	CountByStatus(ctx context.Context, freelancerID uint) (map[models.ProposalStatus]int64, error)
}

type proposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func (r *proposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	if err := r.db.WithContext(ctx).Omit("Job", "Freelancer").Create(p).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id uint) (*models.Proposal, error) {
	var p models.Proposal
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, lookupError(err, "Proposal", id)
	}
	return &p, nil
}

func (r *proposalRepository) FindActive(ctx context.Context, jobID, freelancerID uint) (*models.Proposal, error) {
	var p models.Proposal
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND freelancer_id = ? AND status IN ?", jobID, freelancerID, models.ActiveProposalStatuses).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &p, nil
}

func (r *proposalRepository) ListByFreelancer(ctx context.Context, freelancerID uint, status models.ProposalStatus) ([]models.Proposal, error) {
	var out []models.Proposal
	q := r.db.WithContext(ctx).Preload("Job").Where("freelancer_id = ?", freelancerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *proposalRepository) TransitionStatus(ctx context.Context, id uint, from []models.ProposalStatus, to models.ProposalStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *proposalRepository) CountByStatus(ctx context.Context, freelancerID uint) (map[models.ProposalStatus]int64, error) {
	var rows []struct {
		Status models.ProposalStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Proposal{}).
		Select("status, COUNT(*) AS count").
		Where("freelancer_id = ?", freelancerID).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[models.ProposalStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
