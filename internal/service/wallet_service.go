package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gigboard/internal/cache"
	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// WithdrawalInput requests a payout. Bank transfers need the account
// details; wallet payouts need an address.
type WithdrawalInput struct {
	Amount        int64  `json:"amount" validate:"gt=0,max=1000000000000"`
	Method        string `json:"method" validate:"required,is-withdrawal-method"`
	BankName      string `json:"bank_name" validate:"required_if=Method bank,max=120"`
	AccountName   string `json:"account_name" validate:"required_if=Method bank,max=120"`
	AccountNumber string `json:"account_number" validate:"required_if=Method bank,max=64"`
	WalletAddress string `json:"wallet_address" validate:"required_if=Method wallet,max=128"`
}

type WalletService struct {
	base
}

func NewWalletService(db *gorm.DB, views *cache.ViewCache) *WalletService {
	return &WalletService{base: newBase(db, views)}
}

// RequestWithdrawal reserves funds from the freelancer's available balance.
// The profile row is locked so two concurrent requests cannot both spend
// the same balance.
func (s *WalletService) RequestWithdrawal(ctx context.Context, actor *policy.Actor, in WithdrawalInput) (*models.WithdrawalRequest, error) {
	var request *models.WithdrawalRequest
	err := track(ctx, "request_withdrawal", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		if err := policy.RequireRole(actor, models.RoleFreelancer); err != nil {
			return err
		}
		if s.db == nil {
			return models.NewUnavailableError()
		}

		method := models.WithdrawalMethod(in.Method)
		err := s.inTx(ctx, func(tx *repository.Store) error {
			if _, err := tx.Profiles.GetByIDForUpdate(ctx, actor.UserID); err != nil {
				return err
			}
			settings, err := settingsOrDefault(ctx, tx)
			if err != nil {
				return err
			}
			if in.Amount < settings.MinWithdrawal {
				return models.NewValidationError(fmt.Sprintf("The minimum withdrawal is %d.", settings.MinWithdrawal))
			}
			balance, err := tx.Wallet.Balance(ctx, actor.UserID)
			if err != nil {
				return err
			}
			if in.Amount > balance.Available {
				return models.NewValidationError("The amount exceeds your available balance.")
			}

			w := &models.WithdrawalRequest{
				FreelancerID: actor.UserID,
				Amount:       in.Amount,
				Method:       method,
				Status:       models.WithdrawalPending,
			}
			if method == models.WithdrawalBank {
				w.BankName = strings.TrimSpace(in.BankName)
				w.AccountName = strings.TrimSpace(in.AccountName)
				w.AccountNumber = strings.TrimSpace(in.AccountNumber)
			} else {
				w.WalletAddress = strings.TrimSpace(in.WalletAddress)
			}
			if err := tx.Wallet.CreateWithdrawal(ctx, w); err != nil {
				return err
			}
			if err := tx.Wallet.CreateTransaction(ctx, &models.WalletTransaction{
				UserID:       actor.UserID,
				Type:         models.TransactionWithdrawal,
				Amount:       in.Amount,
				Status:       models.TransactionPending,
				WithdrawalID: &w.ID,
				Description:  fmt.Sprintf("Withdrawal via %s", method),
			}); err != nil {
				return err
			}
			request = w
			return nil
		})
		if err != nil {
			return err
		}
		s.invalidate(ctx,
			cache.WalletViewKey(actor.UserID),
			cache.FreelancerDashboardKey(actor.UserID),
			cache.AdminOverviewKey(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ListWithdrawals returns the admin processing queue.
func (s *WalletService) ListWithdrawals(ctx context.Context, actor *policy.Actor, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Wallet.ListWithdrawals(ctx, repository.WithdrawalFilter{Status: status}, 100)
}

// AdvanceWithdrawal moves a request one step: pending to processing, then
// processing to completed. Completion settles the reserved ledger entry.
func (s *WalletService) AdvanceWithdrawal(ctx context.Context, actor *policy.Actor, withdrawalID uint) (*models.WithdrawalRequest, error) {
	var request *models.WithdrawalRequest
	err := track(ctx, "advance_withdrawal", func(ctx context.Context) error {
		if err := policy.RequireAdmin(actor); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		w, err := st.Wallet.GetWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		next, ok := w.Status.Next()
		if !ok {
			return models.NewValidationError("This withdrawal is already completed.")
		}

		var extra map[string]interface{}
		now := time.Now().UTC()
		if next == models.WithdrawalCompleted {
			extra = map[string]interface{}{"processed_at": now}
		}
		err = s.inTx(ctx, func(tx *repository.Store) error {
			changed, err := tx.Wallet.TransitionWithdrawal(ctx, w.ID, w.Status, next, extra)
			if err != nil {
				return err
			}
			if !changed {
				return models.NewConflictError("This withdrawal was updated by someone else. Reload and try again.")
			}
			if next == models.WithdrawalCompleted {
				return tx.Wallet.CompleteWithdrawalEntries(ctx, w.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		w.Status = next
		if next == models.WithdrawalCompleted {
			w.ProcessedAt = &now
		}
		request = w
		s.invalidate(ctx, cache.WalletViewKey(w.FreelancerID), cache.AdminOverviewKey())
		return nil
	}, attribute.Int("withdrawal.id", int(withdrawalID)))
	if err != nil {
		return nil, err
	}
	return request, nil
}
