package service

import (
	"context"
	"log/slog"
	"strings"

	"gigboard/internal/cache"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/repository"
	"gigboard/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const msgInvalidCredentials = "Invalid email or password."

type SignupInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
}

type SigninInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleUser is the subset of the Google userinfo payload used at sign-in.
type GoogleUser struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type OnboardingInput struct {
	Role       string   `json:"role" validate:"required,is-signup-role"`
	FullName   string   `json:"full_name" validate:"required,min=2,max=120"`
	Headline   string   `json:"headline" validate:"max=160"`
	Bio        string   `json:"bio" validate:"max=2000"`
	Skills     []string `json:"skills" validate:"max=20,dive,required,max=40"`
	HourlyRate int64    `json:"hourly_rate" validate:"gte=0"`
}

// ProfileUpdateInput carries a partial update; nil fields are left alone.
type ProfileUpdateInput struct {
	FullName   *string   `json:"full_name" validate:"omitempty,min=2,max=120"`
	Headline   *string   `json:"headline" validate:"omitempty,max=160"`
	Bio        *string   `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL  *string   `json:"avatar_url" validate:"omitempty,max=500"`
	Skills     *[]string `json:"skills" validate:"omitempty,max=20,dive,required,max=40"`
	HourlyRate *int64    `json:"hourly_rate" validate:"omitempty,gte=0"`
}

type UserService struct {
	base
	bcryptCost int
}

func NewUserService(db *gorm.DB, views *cache.ViewCache) *UserService {
	return &UserService{base: newBase(db, views), bcryptCost: bcrypt.DefaultCost}
}

// Me returns the user with profile.
func (s *UserService) Me(ctx context.Context, userID uint) (*models.User, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Users.GetWithProfile(ctx, userID)
}

// Signup registers an email/password account. The profile starts as a
// freelancer that still has to complete onboarding.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	var user *models.User
	err := track(ctx, "signup", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		if err := validation.ValidatePassword(in.Password); err != nil {
			return models.NewValidationError(err.Error())
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		existing, err := st.Users.GetByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.NewConflictError("An account with this email already exists.")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
		if err != nil {
			return models.NewInternalError(err)
		}
		user = &models.User{
			Email:        in.Email,
			PasswordHash: string(hash),
			AuthProvider: models.ProviderPassword,
		}
		return s.createWithProfile(ctx, user, &models.Profile{
			Role:     models.RoleFreelancer,
			FullName: strings.TrimSpace(in.FullName),
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) createWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	return s.inTx(ctx, func(tx *repository.Store) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		profile.ID = user.ID
		if err := tx.Profiles.Create(ctx, profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

// Signin checks email/password credentials. Unknown emails and wrong
// passwords produce the same message.
func (s *UserService) Signin(ctx context.Context, in SigninInput) (*models.User, error) {
	var user *models.User
	err := track(ctx, "signin", func(ctx context.Context) error {
		if err := validate(in); err != nil {
			return err
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		u, err := st.Users.GetByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if u == nil || u.PasswordHash == "" {
			return models.NewUnauthorizedError(msgInvalidCredentials)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
			return models.NewUnauthorizedError(msgInvalidCredentials)
		}
		if u.Profile == nil {
			return models.NewNotFoundError("Profile", u.ID)
		}
		if u.Profile.IsSuspended {
			return models.NewForbiddenError(policy.ReasonSuspended)
		}
		s.upgradeHash(ctx, st, u, in.Password)
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// upgradeHash re-hashes a password stored with a lower bcrypt cost than the
// current one. Failures only cost the upgrade, never the sign-in.
func (s *UserService) upgradeHash(ctx context.Context, st *repository.Store, u *models.User, password string) {
	cost, err := bcrypt.Cost([]byte(u.PasswordHash))
	if err != nil || cost >= s.bcryptCost {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err == nil {
		err = st.Users.UpdatePasswordHash(ctx, u.ID, string(hash))
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "password hash upgrade failed",
			slog.Uint64("user_id", uint64(u.ID)), slog.String("error", err.Error()))
		return
	}
	u.PasswordHash = string(hash)
}

// GoogleUpsert signs in a Google account, creating the user on first login.
// An existing password account with the same verified email is reused.
func (s *UserService) GoogleUpsert(ctx context.Context, g GoogleUser) (*models.User, error) {
	var user *models.User
	err := track(ctx, "google_signin", func(ctx context.Context) error {
		if strings.TrimSpace(g.Email) == "" || !g.EmailVerified {
			return models.NewUnauthorizedError("Your Google account has no verified email address.")
		}
		st, err := s.store()
		if err != nil {
			return err
		}
		u, err := st.Users.GetByEmail(ctx, g.Email)
		if err != nil {
			return err
		}
		if u != nil {
			if u.Profile != nil && u.Profile.IsSuspended {
				return models.NewForbiddenError(policy.ReasonSuspended)
			}
			user = u
			return nil
		}

		user = &models.User{Email: g.Email, AuthProvider: models.ProviderGoogle}
		return s.createWithProfile(ctx, user, &models.Profile{
			Role:      models.RoleFreelancer,
			FullName:  strings.TrimSpace(g.Name),
			AvatarURL: g.Picture,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CompleteOnboarding sets the role and the public profile once.
func (s *UserService) CompleteOnboarding(ctx context.Context, actor *policy.Actor, in OnboardingInput) (*models.Profile, error) {
	var profile *models.Profile
	err := track(ctx, "complete_onboarding", func(ctx context.Context) error {
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
		p, err := st.Profiles.GetByID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if p.IsOnboarded {
			return models.NewValidationError("Your profile is already set up.")
		}
		skills := cleanSkills(in.Skills)
		if err := st.Profiles.Update(ctx, p.ID, map[string]interface{}{
			"role":         models.Role(in.Role),
			"full_name":    strings.TrimSpace(in.FullName),
			"headline":     strings.TrimSpace(in.Headline),
			"bio":          strings.TrimSpace(in.Bio),
			"skills":       datatypes.JSONSlice[string](skills),
			"hourly_rate":  in.HourlyRate,
			"is_onboarded": true,
		}); err != nil {
			return err
		}
		profile, err = st.Profiles.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		s.invalidate(ctx, cache.AdminOverviewKey())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile applies the fields present in `in`.
func (s *UserService) UpdateProfile(ctx context.Context, actor *policy.Actor, in ProfileUpdateInput) (*models.Profile, error) {
	var profile *models.Profile
	err := track(ctx, "update_profile", func(ctx context.Context) error {
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

		fields := map[string]interface{}{}
		if in.FullName != nil {
			fields["full_name"] = strings.TrimSpace(*in.FullName)
		}
		if in.Headline != nil {
			fields["headline"] = strings.TrimSpace(*in.Headline)
		}
		if in.Bio != nil {
			fields["bio"] = strings.TrimSpace(*in.Bio)
		}
		if in.AvatarURL != nil {
			fields["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
		}
		if in.Skills != nil {
			fields["skills"] = datatypes.JSONSlice[string](cleanSkills(*in.Skills))
		}
		if in.HourlyRate != nil {
			fields["hourly_rate"] = *in.HourlyRate
		}
		if len(fields) > 0 {
			if err := st.Profiles.Update(ctx, actor.UserID, fields); err != nil {
				return err
			}
		}
		profile, err = st.Profiles.GetByID(ctx, actor.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
