package service

import (
	"context"
	"fmt"
	"strings"

	"gigboard/internal/cache"
	"gigboard/internal/models"
	"gigboard/internal/policy"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobInput is the editable part of a job posting.
type JobInput struct {
	Title       string   `json:"title" validate:"required,min=5,max=200"`
	Description string   `json:"description" validate:"required,min=20,max=10000"`
	Category    string   `json:"category" validate:"max=80"`
	BudgetType  string   `json:"budget_type" validate:"required,is-budget-type"`
	BudgetMin   int64    `json:"budget_min" validate:"gte=0,max=1000000000000"`
	BudgetMax   int64    `json:"budget_max" validate:"gtefield=BudgetMin,max=1000000000000"`
	Skills      []string `json:"skills" validate:"max=15,dive,required,max=40"`
}

func (in JobInput) fields() map[string]interface{} {
	return map[string]interface{}{
		"title":       strings.TrimSpace(in.Title),
		"description": strings.TrimSpace(in.Description),
		"category":    strings.TrimSpace(in.Category),
		"budget_type": models.BudgetType(in.BudgetType),
		"budget_min":  in.BudgetMin,
		"budget_max":  in.BudgetMax,
		"skills":      datatypes.JSONSlice[string](cleanSkills(in.Skills)),
	}
}

// cleanSkills trims entries and drops blanks and duplicates, keeping order.
func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

type JobService struct {
	base
}

func NewJobService(db *gorm.DB, views *cache.ViewCache) *JobService {
	return &JobService{base: newBase(db, views)}
}

// CreateJob posts a new open job for the acting employer.
func (s *JobService) CreateJob(ctx context.Context, actor *policy.Actor, in JobInput) (*models.Job, error) {
	var job *models.Job
	err := track(ctx, "create_job", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		if err := policy.RequireRole(actor, models.RoleEmployer); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}

		job = &models.Job{
			EmployerID:  actor.UserID,
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			Category:    strings.TrimSpace(in.Category),
			BudgetType:  models.BudgetType(in.BudgetType),
			BudgetMin:   in.BudgetMin,
			BudgetMax:   in.BudgetMax,
			Skills:      cleanSkills(in.Skills),
			Status:      models.JobOpen,
		}
		if err := st.Jobs.Create(ctx, job); err != nil {
			return err
		}
		s.invalidate(ctx, cache.EmployerDashboardKey(actor.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJob edits a draft or open job.
func (s *JobService) UpdateJob(ctx context.Context, actor *policy.Actor, jobID uint, in JobInput) (*models.Job, error) {
	var job *models.Job
	err := track(ctx, "update_job", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		current, err := st.Jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if err := policy.CanWriteJob(actor, current); err != nil {
			return err
		}
		if current.Status != models.JobDraft && current.Status != models.JobOpen {
			return models.NewValidationError("Only draft or open jobs can be edited.")
		}
		if err := st.Jobs.Update(ctx, jobID, in.fields()); err != nil {
			return err
		}
		if job, err = st.Jobs.GetByID(ctx, jobID); err != nil {
			return err
		}
		s.invalidate(ctx, cache.JobViewKey(jobID), cache.EmployerDashboardKey(current.EmployerID))
		return nil
	}, attribute.Int("job.id", int(jobID)))
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJobStatus moves a job along its lifecycle. Only the owning employer
// or an admin may do so, and only along an allowed transition.
func (s *JobService) UpdateJobStatus(ctx context.Context, actor *policy.Actor, jobID uint, status models.JobStatus) (*models.Job, error) {
	var job *models.Job
	err := track(ctx, "update_job_status", func(ctx context.Context) error {
		if !status.IsValid() {
			return models.NewValidationError("Status is not a valid job status.")
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		current, err := st.Jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if err := policy.CanChangeJobStatus(actor, current); err != nil {
			return err
		}
		if !current.Status.CanTransition(status) {
			return models.NewValidationError(fmt.Sprintf("A job cannot move from %s to %s.", humanStatus(string(current.Status)), humanStatus(string(status))))
		}

		ok, err := st.Jobs.TransitionStatus(ctx, jobID, []models.JobStatus{current.Status}, status)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflictError("This job was changed by someone else. Reload and try again.")
		}
		current.Status = status
		job = current
		s.invalidate(ctx, cache.JobViewKey(jobID), cache.EmployerDashboardKey(current.EmployerID))
		return nil
	}, attribute.Int("job.id", int(jobID)), attribute.String("job.status", string(status)))
	if err != nil {
		return nil, err
	}
	return job, nil
}

func humanStatus(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
