package repository

import (
	"context"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// ContractRepository defines persistence operations for contracts and milestones.
type ContractRepository interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uint) (*models.Contract, error)
	GetDetail(ctx context.Context, id uint) (*models.Contract, error)
	ListForUser(ctx context.Context, userID uint, status models.ContractStatus) ([]models.Contract, error)
	ListAll(ctx context.Context, status models.ContractStatus, limit int) ([]models.Contract, error)
	TransitionStatus(ctx context.Context, id uint, from []models.ContractStatus, to models.ContractStatus, extra map[string]interface{}) (bool, error)
	SumEscrow(ctx context.Context, employerID uint, statuses []models.ContractStatus) (int64, error)
}

type contractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, c *models.Contract) error {
	if err := r.db.WithContext(ctx).Omit("Job", "Employer", "Freelancer", "Milestones").Create(c).Error; err != nil {
		return writeError(err, "This proposal has already been hired.")
	}
	return nil
}

func (r *contractRepository) GetByID(ctx context.Context, id uint) (*models.Contract, error) {
	var c models.Contract
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, lookupError(err, "Contract", id)
	}
	return &c, nil
}

func (r *contractRepository) GetDetail(ctx context.Context, id uint) (*models.Contract, error) {
	var c models.Contract
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Employer").
		Preload("Freelancer").
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&c, id).Error
	if err != nil {
		return nil, lookupError(err, "Contract", id)
	}
	return &c, nil
}

func (r *contractRepository) ListForUser(ctx context.Context, userID uint, status models.ContractStatus) ([]models.Contract, error) {
	var out []models.Contract
	q := r.db.WithContext(ctx).Preload("Job").Preload("Employer").Preload("Freelancer").
		Where("(employer_id = ? OR freelancer_id = ?)", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *contractRepository) ListAll(ctx context.Context, status models.ContractStatus, limit int) ([]models.Contract, error) {
	var out []models.Contract
	q := r.db.WithContext(ctx).Preload("Job")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Limit(clampLimit(limit, 50, 200)).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *contractRepository) TransitionStatus(ctx context.Context, id uint, from []models.ContractStatus, to models.ContractStatus, extra map[string]interface{}) (bool, error) {
	fields := map[string]interface{}{"status": to}
	for k, v := range extra {
		fields[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Contract{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *contractRepository) SumEscrow(ctx context.Context, employerID uint, statuses []models.ContractStatus) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Contract{}).
		Select("COALESCE(SUM(escrow_amount), 0)").
		Where("employer_id = ? AND status IN ?", employerID, statuses).
		Scan(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

// MilestoneRepository defines persistence operations for milestones.
type MilestoneRepository interface {
	Create(ctx context.Context, m *models.Milestone) error
	GetByID(ctx context.Context, id uint) (*models.Milestone, error)
	ListByContract(ctx context.Context, contractID uint) ([]models.Milestone, error)
	// Transition applies fields only while the status is one of from.
	Transition(ctx context.Context, id uint, from []models.MilestoneStatus, fields map[string]interface{}) (bool, error)
}

type milestoneRepository struct {
	db *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

func (r *milestoneRepository) Create(ctx context.Context, m *models.Milestone) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *milestoneRepository) GetByID(ctx context.Context, id uint) (*models.Milestone, error) {
	var m models.Milestone
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, lookupError(err, "Milestone", id)
	}
	return &m, nil
}

func (r *milestoneRepository) ListByContract(ctx context.Context, contractID uint) ([]models.Milestone, error) {
	var out []models.Milestone
	if err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *milestoneRepository) Transition(ctx context.Context, id uint, from []models.MilestoneStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Milestone{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}
