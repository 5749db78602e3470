package repository

import (
	"context"
	"strings"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// JobFilter narrows job listings. Zero values are ignored.
type JobFilter struct {
	Status     models.JobStatus
	Category   string
	EmployerID uint
	Search     string
	BudgetType models.BudgetType
}

// likeEscaper makes LIKE wildcards in search text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (f JobFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.EmployerID != 0 {
		q = q.Where("employer_id = ?", f.EmployerID)
	}
	if f.BudgetType != "" {
		q = q.Where("budget_type = ?", f.BudgetType)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}
	return q
}

// JobRepository defines persistence operations for jobs.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uint) (*models.Job, error)
	// GetDetail preloads the employer and every proposal with its freelancer.
	GetDetail(ctx context.Context, id uint) (*models.Job, error)
	List(ctx context.Context, filter JobFilter, limit, offset int) ([]models.Job, int64, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	// TransitionStatus moves the job to `to` only while its status is one of
	// `from`, reporting whether a row changed.
	TransitionStatus(ctx context.Context, id uint, from []models.JobStatus, to models.JobStatus) (bool, error)
	CountByStatus(ctx context.Context, employerID uint) (map[models.JobStatus]int64, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Omit("Employer", "Proposals").Create(job).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, lookupError(err, "Job", id)
	}
	return &job, nil
}

func (r *jobRepository) GetDetail(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Preload("Employer").
		Preload("Proposals", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Proposals.Freelancer").
		First(&job, id).Error
	if err != nil {
		return nil, lookupError(err, "Job", id)
	}
	return &job, nil
}

func (r *jobRepository) List(ctx context.Context, filter JobFilter, limit, offset int) ([]models.Job, int64, error) {
	var (
		jobs  []models.Job
		total int64
	)
	base := filter.apply(r.db.WithContext(ctx).Model(&models.Job{}))
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	err := filter.apply(r.db.WithContext(ctx)).
		Preload("Employer").
		Order("created_at DESC").
		Limit(clampLimit(limit, 20, 100)).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return jobs, total, nil
}

func (r *jobRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Job", id)
	}
	return nil
}

func (r *jobRepository) TransitionStatus(ctx context.Context, id uint, from []models.JobStatus, to models.JobStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *jobRepository) CountByStatus(ctx context.Context, employerID uint) (map[models.JobStatus]int64, error) {
	var rows []struct {
		Status models.JobStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select("status, COUNT(*) AS count").
		Where("employer_id = ?", employerID).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[models.JobStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
