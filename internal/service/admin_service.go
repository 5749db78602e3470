package service

import (
	"context"

	"gigboard/internal/cache"
	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type SettingsInput struct {
	CommissionPercent int   `json:"commission_percent" validate:"gte=0,max=50"`
	MinWithdrawal     int64 `json:"min_withdrawal" validate:"gte=0,max=1000000000000"`
}

type AdminService struct {
	base
}

func NewAdminService(db *gorm.DB, views *cache.ViewCache) *AdminService {
	return &AdminService{base: newBase(db, views)}
}

// SuspendUser blocks an account from acting. Admins cannot suspend themselves.
func (s *AdminService) SuspendUser(ctx context.Context, actor *policy.Actor, userID uint) (*models.Profile, error) {
	return s.setSuspended(ctx, "suspend_user", actor, userID, true)
}

func (s *AdminService) ReinstateUser(ctx context.Context, actor *policy.Actor, userID uint) (*models.Profile, error) {
	return s.setSuspended(ctx, "reinstate_user", actor, userID, false)
}

func (s *AdminService) setSuspended(ctx context.Context, workflow string, actor *policy.Actor, userID uint, suspended bool) (*models.Profile, error) {
	var profile *models.Profile
	err := track(ctx, workflow, func(ctx context.Context) error {
		if err := policy.RequireAdmin(actor); err != nil {
			return err
		}
		if suspended && userID == actor.UserID {
			return models.NewValidationError("You cannot suspend your own account.")
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		p, err := st.Profiles.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := st.Profiles.SetSuspended(ctx, userID, suspended); err != nil {
			return err
		}
		p.IsSuspended = suspended
		profile = p
		s.invalidate(ctx, cache.AdminOverviewKey())
		return nil
	}, attribute.Int("target.user_id", int(userID)))
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// GetSettings returns the stored settings, or the defaults when none were saved.
func (s *AdminService) GetSettings(ctx context.Context) (models.Settings, error) {
	st, err := s.store()
	if err != nil {
		return models.Settings{}, err
	}
	return settingsOrDefault(ctx, st)
}

// UpsertSettings writes the single settings row, inserting it the first time.
func (s *AdminService) UpsertSettings(ctx context.Context, actor *policy.Actor, in SettingsInput) (*models.Settings, error) {
	var saved *models.Settings
	err := track(ctx, "upsert_settings", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		if err := policy.RequireAdmin(actor); err != nil {
			return err
		}
		err := s.inTx(ctx, func(tx *repository.Store) error {
			current, err := tx.Settings.Get(ctx)
			if err != nil {
				return err
			}
			if current == nil {
				saved = &models.Settings{
					CommissionPercent: in.CommissionPercent,
					MinWithdrawal:     in.MinWithdrawal,
					UpdatedBy:         actor.UserID,
				}
				return tx.Settings.Create(ctx, saved)
			}
			if err := tx.Settings.Update(ctx, current.ID, map[string]interface{}{
				"commission_percent": in.CommissionPercent,
				"min_withdrawal":     in.MinWithdrawal,
				"updated_by":         actor.UserID,
			}); err != nil {
				return err
			}
			current.CommissionPercent = in.CommissionPercent
			current.MinWithdrawal = in.MinWithdrawal
			current.UpdatedBy = actor.UserID
			saved = current
			return nil
		})
		if err != nil {
			return err
		}
		s.invalidate(ctx, cache.AdminOverviewKey())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
