// Package policy holds every authorization rule. Guards return nil when the
// actor may proceed, an UNAUTHORIZED AppError when there is no actor, and a
// FORBIDDEN AppError with a readable reason otherwise.
package policy

import (
	"gigboard/internal/auth"
	"gigboard/internal/models"
)

// Actor is the minimal view of an identity the rules need.
type Actor struct {
	UserID    uint
	Role      models.Role
	Onboarded bool
	Suspended bool
}

// ActorFrom converts a resolved identity. Anonymous identities yield nil.
func ActorFrom(id *auth.Identity) *Actor {
	if id == nil || id.User == nil || id.Profile == nil {
		return nil
	}
	return &Actor{
		UserID:    id.User.ID,
		Role:      id.Profile.Role,
		Onboarded: id.Profile.IsOnboarded,
		Suspended: id.Profile.IsSuspended,
	}
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == models.RoleAdmin
}

// Reasons reported to callers.
const (
	ReasonSignIn         = "You must be signed in."
	ReasonSuspended      = "Your account is suspended."
	ReasonRole           = "Your account type cannot perform this action."
	ReasonOnboarding     = "Finish setting up your account first."
	ReasonNotOwner       = "You do not have permission to modify this resource."
	ReasonNotParticipant = "You are not a participant in this contract."
)

// RequireAuth admits any signed-in, non-suspended actor.
func RequireAuth(a *Actor) error {
	if a == nil || a.UserID == 0 {
		return models.NewUnauthorizedError(ReasonSignIn)
	}
	if a.Suspended {
		return models.NewForbiddenError(ReasonSuspended)
	}
	return nil
}

// RequireRole admits actors holding one of roles. The role of an account
// that has not finished onboarding is provisional, so only admins skip that
// step.
func RequireRole(a *Actor, roles ...models.Role) error {
	if err := RequireAuth(a); err != nil {
		return err
	}
	if !a.Onboarded && !a.IsAdmin() {
		return models.NewForbiddenError(ReasonOnboarding)
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return models.NewForbiddenError(ReasonRole)
}

// RequireAdmin is RequireRole(a, admin).
func RequireAdmin(a *Actor) error {
	return RequireRole(a, models.RoleAdmin)
}

// IsOwner reports whether actorID owns the resource.
func IsOwner(ownerID, actorID uint) bool {
	return ownerID != 0 && ownerID == actorID
}
