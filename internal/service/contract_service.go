package service

import (
	"context"
	"strings"
	"time"

	"gigboard/internal/cache"
	"gigboard/internal/models"
	"gigboard/internal/observability"
	"gigboard/internal/policy"
	"gigboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const msgContractNotActive = "This contract is not active."

type MilestoneInput struct {
	Title       string     `json:"title" validate:"required,min=3,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Amount      int64      `json:"amount" validate:"gt=0,max=1000000000000"`
	DueDate     *time.Time `json:"due_date"`
}

type SubmitMilestoneInput struct {
	Deliverable string `json:"deliverable" validate:"required,max=5000"`
	Notes       string `json:"notes" validate:"max=5000"`
}

type RejectMilestoneInput struct {
	Feedback string `json:"feedback" validate:"required,min=5,max=5000"`
}

type ContractService struct {
	base
}

func NewContractService(db *gorm.DB, views *cache.ViewCache) *ContractService {
	return &ContractService{base: newBase(db, views)}
}

// List returns the actor's contracts; admins see every contract.
func (s *ContractService) List(ctx context.Context, actor *policy.Actor, status models.ContractStatus) ([]models.Contract, error) {
	if err := policy.RequireAuth(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, models.NewValidationError("Status is not a valid contract status.")
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return st.Contracts.ListAll(ctx, status, 100)
	}
	return st.Contracts.ListForUser(ctx, actor.UserID, status)
}

func (s *ContractService) invalidateContract(ctx context.Context, c *models.Contract) {
	s.invalidate(ctx,
		cache.ContractViewKey(c.ID),
		cache.JobViewKey(c.JobID),
		cache.EmployerDashboardKey(c.EmployerID),
		cache.FreelancerDashboardKey(c.FreelancerID),
	)
}

// Complete closes an active contract and its job together.
func (s *ContractService) Complete(ctx context.Context, actor *policy.Actor, contractID uint) (*models.Contract, error) {
	var contract *models.Contract
	err := track(ctx, "complete_contract", func(ctx context.Context) error {
		st, err := s.store()
		if err != nil {
			return err
		}
		c, err := st.Contracts.GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		if err := policy.IsContractEmployer(actor, c); err != nil {
			return err
		}
		if c.Status != models.ContractActive {
			return models.NewValidationError("Only active contracts can be completed.")
		}

		now := time.Now().UTC()
		err = s.inTx(ctx, func(tx *repository.Store) error {
			ok, err := tx.Contracts.TransitionStatus(ctx, c.ID,
				[]models.ContractStatus{models.ContractActive}, models.ContractCompleted,
				map[string]interface{}{"completed_at": now})
			if err != nil {
				return err
			}
			if !ok {
				return models.NewConflictError("This contract was changed by someone else. Reload and try again.")
			}
			// The job may already have been closed by an admin.
			_, err = tx.Jobs.TransitionStatus(ctx, c.JobID, []models.JobStatus{models.JobInProgress}, models.JobCompleted)
			return err
		})
		if err != nil {
			return err
		}
		c.Status = models.ContractCompleted
		c.CompletedAt = &now
		contract = c
		s.invalidateContract(ctx, c)
		return nil
	}, attribute.Int("contract.id", int(contractID)))
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// CreateMilestone adds a funded step to an active contract.
func (s *ContractService) CreateMilestone(ctx context.Context, actor *policy.Actor, contractID uint, in MilestoneInput) (*models.Milestone, error) {
	var milestone *models.Milestone
	err := track(ctx, "create_milestone", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		c, err := st.Contracts.GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		if err := policy.IsContractEmployer(actor, c); err != nil {
			return err
		}
		if c.Status != models.ContractActive {
			return models.NewValidationError(msgContractNotActive)
		}
		milestone = &models.Milestone{
			ContractID:  c.ID,
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			Amount:      in.Amount,
			DueDate:     in.DueDate,
			Status:      models.MilestonePending,
		}
		if err := st.Milestones.Create(ctx, milestone); err != nil {
			return err
		}
		s.invalidate(ctx, cache.ContractViewKey(c.ID))
		return nil
	}, attribute.Int("contract.id", int(contractID)))
	if err != nil {
		return nil, err
	}
	return milestone, nil
}

// loadMilestone returns the milestone and its contract.
func loadMilestone(ctx context.Context, st *repository.Store, milestoneID uint) (*models.Milestone, *models.Contract, error) {
	m, err := st.Milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, err
	}
	c, err := st.Contracts.GetByID(ctx, m.ContractID)
	if err != nil {
		return nil, nil, err
	}
	return m, c, nil
}

// SubmitMilestone hands a deliverable to the employer for review.
func (s *ContractService) SubmitMilestone(ctx context.Context, actor *policy.Actor, milestoneID uint, in SubmitMilestoneInput) (*models.Milestone, error) {
	var milestone *models.Milestone
	err := track(ctx, "submit_milestone", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		if err := policy.RequireRole(actor, models.RoleFreelancer); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		m, c, err := loadMilestone(ctx, st, milestoneID)
		if err != nil {
			return err
		}
		if err := policy.IsContractFreelancer(actor, c); err != nil {
			return err
		}
		if c.Status != models.ContractActive {
			return models.NewValidationError(msgContractNotActive)
		}
		if m.Status != models.MilestonePending && m.Status != models.MilestoneRejected {
			return models.NewValidationError("Only pending or rejected milestones can be submitted.")
		}

		now := time.Now().UTC()
		ok, err := st.Milestones.Transition(ctx, m.ID,
			[]models.MilestoneStatus{models.MilestonePending, models.MilestoneRejected},
			map[string]interface{}{
				"status":       models.MilestoneInReview,
				"deliverable":  strings.TrimSpace(in.Deliverable),
				"notes":        strings.TrimSpace(in.Notes),
				"submitted_at": now,
			})
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflictError("This milestone was changed by someone else. Reload and try again.")
		}
		m.Status = models.MilestoneInReview
		m.Deliverable = strings.TrimSpace(in.Deliverable)
		m.Notes = strings.TrimSpace(in.Notes)
		m.SubmittedAt = &now
		milestone = m
		s.invalidate(ctx, cache.ContractViewKey(c.ID))
		return nil
	}, attribute.Int("milestone.id", int(milestoneID)))
	if err != nil {
		return nil, err
	}
	return milestone, nil
}

// ApproveMilestone accepts a submitted milestone and releases its amount,
// less the platform commission, to the freelancer's ledger. The status
// change and the ledger entry commit together; the unique milestone
// reference on the ledger guarantees a single release.
func (s *ContractService) ApproveMilestone(ctx context.Context, actor *policy.Actor, milestoneID uint) (*models.Milestone, error) {
	var milestone *models.Milestone
	err := track(ctx, "approve_milestone", func(ctx context.Context) error {
		if err := policy.RequireRole(actor, models.RoleEmployer); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		m, c, err := loadMilestone(ctx, st, milestoneID)
		if err != nil {
			return err
		}
		if err := policy.IsContractEmployer(actor, c); err != nil {
			return err
		}
		if c.Status != models.ContractActive {
			return models.NewValidationError(msgContractNotActive)
		}
		if m.Status != models.MilestoneInReview {
			return models.NewValidationError("Only milestones in review can be approved.")
		}
		settings, err := settingsOrDefault(ctx, st)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fee := settings.Fee(m.Amount)
		err = s.inTx(ctx, func(tx *repository.Store) error {
			ok, err := tx.Milestones.Transition(ctx, m.ID,
				[]models.MilestoneStatus{models.MilestoneInReview},
				map[string]interface{}{"status": models.MilestoneApproved, "reviewed_at": now})
			if err != nil {
				return err
			}
			if !ok {
				return models.NewConflictError("This milestone was already reviewed.")
			}
			mid := m.ID
			return tx.Wallet.CreateTransaction(ctx, &models.WalletTransaction{
				UserID:      c.FreelancerID,
				Type:        models.TransactionRelease,
				Amount:      m.Amount - fee,
				Fee:         fee,
				Status:      models.TransactionPending,
				MilestoneID: &mid,
				Description: "Milestone approved: " + m.Title,
			})
		})
		if err != nil {
			return err
		}

		observability.WalletReleasedAmount.Add(float64(m.Amount - fee))
		m.Status = models.MilestoneApproved
		m.ReviewedAt = &now
		milestone = m
		s.invalidate(ctx,
			cache.ContractViewKey(c.ID),
			cache.WalletViewKey(c.FreelancerID),
			cache.FreelancerDashboardKey(c.FreelancerID),
		)
		return nil
	}, attribute.Int("milestone.id", int(milestoneID)))
	if err != nil {
		return nil, err
	}
	return milestone, nil
}

// RejectMilestone sends a submitted milestone back with feedback. Nothing is
// written to the ledger.
func (s *ContractService) RejectMilestone(ctx context.Context, actor *policy.Actor, milestoneID uint, in RejectMilestoneInput) (*models.Milestone, error) {
	var milestone *models.Milestone
	err := track(ctx, "reject_milestone", func(ctx context.Context) error {
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
		m, c, err := loadMilestone(ctx, st, milestoneID)
		if err != nil {
			return err
		}
		if err := policy.IsContractEmployer(actor, c); err != nil {
			return err
		}
		if m.Status != models.MilestoneInReview {
			return models.NewValidationError("Only milestones in review can be rejected.")
		}

		now := time.Now().UTC()
		feedback := strings.TrimSpace(in.Feedback)
		ok, err := st.Milestones.Transition(ctx, m.ID,
			[]models.MilestoneStatus{models.MilestoneInReview},
			map[string]interface{}{"status": models.MilestoneRejected, "feedback": feedback, "reviewed_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflictError("This milestone was already reviewed.")
		}
		m.Status = models.MilestoneRejected
		m.Feedback = feedback
		m.ReviewedAt = &now
		milestone = m
		s.invalidate(ctx, cache.ContractViewKey(c.ID))
		return nil
	}, attribute.Int("milestone.id", int(milestoneID)))
	if err != nil {
		return nil, err
	}
	return milestone, nil
}
