package service

import (
	"context"
	"strings"
	"time"

	"gigboard/internal/cache"
	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type DisputeInput struct {
	Reason string `json:"reason" validate:"required,min=10,max=5000"`
}

type ResolveDisputeInput struct {
	Resolution string `json:"resolution" validate:"required,min=5,max=5000"`
	Outcome    string `json:"outcome" validate:"required,is-dispute-outcome"`
}

type DisputeService struct {
	base
}

func NewDisputeService(db *gorm.DB, views *cache.ViewCache) *DisputeService {
	return &DisputeService{base: newBase(db, views)}
}

// Open raises a dispute on an active contract and freezes it.
func (s *DisputeService) Open(ctx context.Context, actor *policy.Actor, contractID uint, in DisputeInput) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := track(ctx, "open_dispute", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		if err := policy.RequireAuth(actor); err != nil {
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
		if !c.IsParticipant(actor.UserID) {
			return models.NewForbiddenError(policy.ReasonNotParticipant)
		}
		if c.Status != models.ContractActive {
			return models.NewValidationError("Disputes can only be opened on active contracts.")
		}

		err = s.inTx(ctx, func(tx *repository.Store) error {
			d := &models.Dispute{
				ContractID: c.ID,
				OpenedBy:   actor.UserID,
				Reason:     strings.TrimSpace(in.Reason),
				Status:     models.DisputeOpen,
			}
			if err := tx.Disputes.Create(ctx, d); err != nil {
				return err
			}
			ok, err := tx.Contracts.TransitionStatus(ctx, c.ID,
				[]models.ContractStatus{models.ContractActive}, models.ContractDisputed, nil)
			if err != nil {
				return err
			}
			if !ok {
				return models.NewConflictError("This contract was changed by someone else. Reload and try again.")
			}
			dispute = d
			return nil
		})
		if err != nil {
			return err
		}
		s.invalidate(ctx,
			cache.ContractViewKey(c.ID),
			cache.EmployerDashboardKey(c.EmployerID),
			cache.FreelancerDashboardKey(c.FreelancerID),
			cache.AdminOverviewKey(),
		)
		return nil
	}, attribute.Int("contract.id", int(contractID)))
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// List returns disputes for the admin queue.
func (s *DisputeService) List(ctx context.Context, actor *policy.Actor, status models.DisputeStatus) ([]models.Dispute, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Disputes.List(ctx, status, 100)
}

// Resolve closes an open dispute. The contract resumes or is cancelled in
// the same transaction; a cancelled contract cancels its job too.
func (s *DisputeService) Resolve(ctx context.Context, actor *policy.Actor, disputeID uint, in ResolveDisputeInput) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := track(ctx, "resolve_dispute", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		if err := policy.RequireAdmin(actor); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		d, err := st.Disputes.GetByID(ctx, disputeID)
		if err != nil {
			return err
		}
		if d.Status != models.DisputeOpen {
			return models.NewValidationError("This dispute is already resolved.")
		}

		outcome := models.DisputeOutcome(in.Outcome)
		next := models.ContractActive
		if outcome == models.OutcomeCancel {
			next = models.ContractCancelled
		}
		now := time.Now().UTC()
		resolver := actor.UserID
		resolution := strings.TrimSpace(in.Resolution)

		err = s.inTx(ctx, func(tx *repository.Store) error {
			ok, err := tx.Disputes.Resolve(ctx, d.ID, map[string]interface{}{
				"status":      models.DisputeResolved,
				"resolution":  resolution,
				"outcome":     outcome,
				"resolved_by": resolver,
				"resolved_at": now,
			})
			if err != nil {
				return err
			}
			if !ok {
				return models.NewConflictError("This dispute is already resolved.")
			}
			ok, err = tx.Contracts.TransitionStatus(ctx, d.ContractID,
				[]models.ContractStatus{models.ContractDisputed}, next, nil)
			if err != nil {
				return err
			}
			if !ok {
				return models.NewConflictError("This contract was changed by someone else. Reload and try again.")
			}
			if next != models.ContractCancelled {
				return nil
			}
			contract := d.Contract
			if contract == nil {
				if contract, err = tx.Contracts.GetByID(ctx, d.ContractID); err != nil {
					return err
				}
			}
			_, err = tx.Jobs.TransitionStatus(ctx, contract.JobID,
				[]models.JobStatus{models.JobInProgress}, models.JobCancelled)
			return err
		})
		if err != nil {
			return err
		}

		d.Status = models.DisputeResolved
		d.Resolution = resolution
		d.Outcome = outcome
		d.ResolvedBy = &resolver
		d.ResolvedAt = &now
		if d.Contract != nil {
			d.Contract.Status = next
			s.invalidate(ctx,
				cache.JobViewKey(d.Contract.JobID),
				cache.EmployerDashboardKey(d.Contract.EmployerID),
				cache.FreelancerDashboardKey(d.Contract.FreelancerID),
			)
		}
		dispute = d
		s.invalidate(ctx, cache.ContractViewKey(d.ContractID), cache.AdminOverviewKey())
		return nil
	}, attribute.Int("dispute.id", int(disputeID)))
	if err != nil {
		return nil, err
	}
	return dispute, nil
}
