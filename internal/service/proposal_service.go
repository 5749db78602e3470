package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"gigboard/internal/cache"
	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	msgDuplicateProposal = "You have already submitted a proposal for this job."
	msgAlreadyHired      = "This proposal has already been hired."
	msgNotWithdrawable   = "Only pending proposals can be withdrawn."
	msgJobNotOpen        = "This job is not accepting proposals."
)

type ProposalInput struct {
	CoverLetter   string `json:"cover_letter" validate:"required,min=20,max=5000"`
	BidAmount     int64  `json:"bid_amount" validate:"gt=0,max=1000000000000"`
	BidType       string `json:"bid_type" validate:"required,is-budget-type"`
	EstimatedDays int    `json:"estimated_days" validate:"gte=1,max=365"`
}

type HireInput struct {
	EscrowAmount int64 `json:"escrow_amount" validate:"gt=0,max=1000000000000"`
}

type ProposalService struct {
	base
}

func NewProposalService(db *gorm.DB, views *cache.ViewCache) *ProposalService {
	return &ProposalService{base: newBase(db, views)}
}

// Submit places the acting freelancer's bid on an open job. A freelancer
// holds at most one active proposal per job.
func (s *ProposalService) Submit(ctx context.Context, actor *policy.Actor, jobID uint, in ProposalInput) (*models.Proposal, error) {
	var proposal *models.Proposal
	err := track(ctx, "submit_proposal", func(ctx context.Context) error {
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
		job, err := st.Jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobOpen {
			return models.NewValidationError(msgJobNotOpen)
		}
		existing, err := st.Proposals.FindActive(ctx, jobID, actor.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.NewConflictError(msgDuplicateProposal)
		}

		proposal = &models.Proposal{
			JobID:         jobID,
			FreelancerID:  actor.UserID,
			CoverLetter:   strings.TrimSpace(in.CoverLetter),
			BidAmount:     in.BidAmount,
			BidType:       models.BudgetType(in.BidType),
			EstimatedDays: in.EstimatedDays,
			Status:        models.ProposalSubmitted,
		}
		if err := st.Proposals.Create(ctx, proposal); err != nil {
			return err
		}
		s.invalidate(ctx,
			cache.JobViewKey(jobID),
			cache.FreelancerDashboardKey(actor.UserID),
			cache.EmployerDashboardKey(job.EmployerID),
		)
		return nil
	}, attribute.Int("job.id", int(jobID)))
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Get returns a proposal visible to its owner, the job owner or an admin.
func (s *ProposalService) Get(ctx context.Context, actor *policy.Actor, proposalID uint) (*models.Proposal, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	p, err := st.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	job, err := st.Jobs.GetByID(ctx, p.JobID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadProposal(actor, p, job); err != nil {
		return nil, err
	}
	p.Job = job
	return p, nil
}

// ListMine returns the acting freelancer's proposals, optionally by status.
func (s *ProposalService) ListMine(ctx context.Context, actor *policy.Actor, status models.ProposalStatus) ([]models.Proposal, error) {
	if err := policy.RequireRole(actor, models.RoleFreelancer); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, models.NewValidationError("Status is not a valid proposal status.")
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Proposals.ListByFreelancer(ctx, actor.UserID, status)
}

// Withdraw retracts a pending proposal owned by the acting freelancer.
func (s *ProposalService) Withdraw(ctx context.Context, actor *policy.Actor, proposalID uint) (*models.Proposal, error) {
	var proposal *models.Proposal
	err := track(ctx, "withdraw_proposal", func(ctx context.Context) error {
		if err := policy.RequireRole(actor, models.RoleFreelancer); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		p, err := st.Proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if err := policy.CanWriteProposal(actor, p); err != nil {
			return err
		}
		if !p.Status.IsPending() {
			return models.NewValidationError(msgNotWithdrawable)
		}
		ok, err := st.Proposals.TransitionStatus(ctx, p.ID, []models.ProposalStatus{models.ProposalSubmitted, models.ProposalShortlisted}, models.ProposalWithdrawn)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewValidationError(msgNotWithdrawable)
		}
		p.Status = models.ProposalWithdrawn
		proposal = p
		s.invalidate(ctx, cache.JobViewKey(p.JobID), cache.FreelancerDashboardKey(p.FreelancerID))
		return nil
	}, attribute.Int("proposal.id", int(proposalID)))
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Shortlist marks a submitted proposal for a closer look.
func (s *ProposalService) Shortlist(ctx context.Context, actor *policy.Actor, proposalID uint) (*models.Proposal, error) {
	return s.decide(ctx, "shortlist_proposal", actor, proposalID,
		[]models.ProposalStatus{models.ProposalSubmitted}, models.ProposalShortlisted,
		"Only submitted proposals can be shortlisted.")
}

// Decline rejects a pending proposal.
func (s *ProposalService) Decline(ctx context.Context, actor *policy.Actor, proposalID uint) (*models.Proposal, error) {
	return s.decide(ctx, "decline_proposal", actor, proposalID,
		[]models.ProposalStatus{models.ProposalSubmitted, models.ProposalShortlisted}, models.ProposalDeclined,
		"Only pending proposals can be declined.")
}

func (s *ProposalService) decide(ctx context.Context, workflow string, actor *policy.Actor, proposalID uint, from []models.ProposalStatus, to models.ProposalStatus, invalidMsg string) (*models.Proposal, error) {
	var proposal *models.Proposal
	err := track(ctx, workflow, func(ctx context.Context) error {
		st, err := s.store()
		if err != nil {
			return err
		}
		p, err := st.Proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		job, err := st.Jobs.GetByID(ctx, p.JobID)
		if err != nil {
			return err
		}
		if err := policy.CanChangeProposalStatus(actor, job); err != nil {
			return err
		}
		if !slices.Contains(from, p.Status) {
			return models.NewValidationError(invalidMsg)
		}
		ok, err := st.Proposals.TransitionStatus(ctx, p.ID, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewValidationError(invalidMsg)
		}
		p.Status = to
		proposal = p
		s.invalidate(ctx, cache.JobViewKey(job.ID), cache.FreelancerDashboardKey(p.FreelancerID))
		return nil
	}, attribute.Int("proposal.id", int(proposalID)))
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Hire turns a pending proposal into an active contract. All checks run
// before any write; the contract insert and both status changes commit
// together or not at all.
func (s *ProposalService) Hire(ctx context.Context, actor *policy.Actor, jobID, proposalID uint, in HireInput) (*models.Contract, error) {
	var contract *models.Contract
	err := track(ctx, "hire_proposal", func(ctx context.Context) error {
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
		p, err := st.Proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.JobID != jobID {
			return models.NewNotFoundError("Proposal", proposalID)
		}
		if p.Status == models.ProposalHired {
			return models.NewConflictError(msgAlreadyHired)
		}
		if !p.Status.IsPending() {
			return models.NewValidationError("Only pending proposals can be hired.")
		}
		job, err := st.Jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if !policy.IsOwner(job.EmployerID, actor.UserID) {
			return models.NewForbiddenError(policy.ReasonNotOwner)
		}
		if job.Status != models.JobOpen {
			return models.NewValidationError("This job is no longer open for hiring.")
		}

		err = s.inTx(ctx, func(tx *repository.Store) error {
			c := &models.Contract{
				ProposalID:   p.ID,
				JobID:        job.ID,
				EmployerID:   job.EmployerID,
				FreelancerID: p.FreelancerID,
				Status:       models.ContractActive,
				EscrowAmount: in.EscrowAmount,
				StartedAt:    time.Now().UTC(),
			}
			if err := tx.Contracts.Create(ctx, c); err != nil {
				return err
			}
			ok, err := tx.Proposals.TransitionStatus(ctx, p.ID, []models.ProposalStatus{models.ProposalSubmitted, models.ProposalShortlisted}, models.ProposalHired)
			if err != nil {
				return err
			}
			if !ok {
				return models.NewConflictError(msgAlreadyHired)
			}
			ok, err = tx.Jobs.TransitionStatus(ctx, job.ID, []models.JobStatus{models.JobOpen}, models.JobInProgress)
			if err != nil {
				return err
			}
			if !ok {
				return models.NewConflictError("This job is no longer open for hiring.")
			}
			contract = c
			return nil
		})
		if err != nil {
			return err
		}
		s.invalidate(ctx,
			cache.JobViewKey(job.ID),
			cache.EmployerDashboardKey(job.EmployerID),
			cache.FreelancerDashboardKey(p.FreelancerID),
		)
		return nil
	}, attribute.Int("job.id", int(jobID)), attribute.Int("proposal.id", int(proposalID)))
	if err != nil {
		return nil, err
	}
	return contract, nil
}
