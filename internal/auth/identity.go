package auth

import (
	"context"
	"errors"

	"gigboard/internal/models"
)

// Identity is the resolved acting user.
type Identity struct {
	User    *models.User
	Profile *models.Profile
	Claims  *Claims
}

func (i *Identity) UserID() uint {
	if i == nil || i.User == nil {
		return 0
	}
	return i.User.ID
}

func (i *Identity) Role() models.Role {
	if i == nil || i.Profile == nil {
		return ""
	}
	return i.Profile.Role
}

// UserLoader loads a user with its profile. It returns a NOT_FOUND AppError
// when the user does not exist.
type UserLoader interface {
	GetWithProfile(ctx context.Context, id uint) (*models.User, error)
}

// Resolver maps a session token to an Identity.
type Resolver struct {
	sessions *SessionManager
	users    UserLoader
}

func NewResolver(sessions *SessionManager, users UserLoader) *Resolver {
	return &Resolver{sessions: sessions, users: users}
}

// Sessions exposes the underlying token manager.
func (r *Resolver) Sessions() *SessionManager {
	return r.sessions
}

// Resolve returns nil without error for anonymous requests: a missing,
// invalid, expired or revoked token, or one naming a deleted user. Only
// storage failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := r.sessions.Parse(ctx, token)
	if err != nil {
		return nil, nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil
	}

	user, err := r.users.GetWithProfile(ctx, userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	if user == nil || user.Profile == nil {
		return nil, nil
	}
	return &Identity{User: user, Profile: user.Profile, Claims: claims}, nil
}

// Refresh reloads the user and profile behind a long-lived identity, such as
// one held by a websocket connection. It returns nil when the session was
// revoked or the user no longer exists.
func (r *Resolver) Refresh(ctx context.Context, id *Identity) (*Identity, error) {
	if id == nil || id.User == nil || r.sessions.Revoked(ctx, id.Claims) {
		return nil, nil
	}
	user, err := r.users.GetWithProfile(ctx, id.User.ID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	if user == nil || user.Profile == nil {
		return nil, nil
	}
	return &Identity{User: user, Profile: user.Profile, Claims: id.Claims}, nil
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached to ctx, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
