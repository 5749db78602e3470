// Package auth issues session tokens and resolves them to the acting identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gigboard/internal/middleware"
	"gigboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	Issuer   = "gigboard-api"
	Audience = "gigboard-web"

	revokedKeyPrefix = "session:revoked:"
)

// ErrInvalidSession covers every reason a token cannot be used.
var ErrInvalidSession = errors.New("invalid session")

// Claims are the JWT claims carried by a session cookie.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return uint(id), nil
}

// SessionManager signs, verifies and revokes session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

// NewSessionManager returns a manager; rdb may be nil, which disables revocation.
func NewSessionManager(secret string, ttl time.Duration, rdb *redis.Client) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, rdb: rdb, now: time.Now}
}

// TTL is the lifetime of newly issued tokens.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new token for userID.
func (m *SessionManager) Issue(userID uint, role models.Role) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the token and rejects revoked ids.
func (m *SessionManager) Parse(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	if m.Revoked(ctx, claims) {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Revoked reports whether claims were revoked and the grace period, if any,
// has passed. A failing revocation store counts as not revoked.
func (m *SessionManager) Revoked(ctx context.Context, claims *Claims) bool {
	if m.rdb == nil || claims == nil || claims.ID == "" {
		return false
	}
	at, err := m.rdb.Get(ctx, revokedKeyPrefix+claims.ID).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return false
	case err != nil:
		middleware.Logger.WarnContext(ctx, "session revocation check failed", slog.String("error", err.Error()))
		return false
	}
	return m.now().Unix() >= at
}

// Revoke blacklists the token id until it would have expired anyway.
func (m *SessionManager) Revoke(ctx context.Context, claims *Claims) error {
	return m.revokeAt(ctx, claims, m.now(), false)
}

// Retire revokes the token once grace has passed, so requests already in
// flight with it still succeed. An earlier revocation is kept.
func (m *SessionManager) Retire(ctx context.Context, claims *Claims, grace time.Duration) error {
	return m.revokeAt(ctx, claims, m.now().Add(grace), true)
}

// The stored value is the unix second from which the token is refused.
func (m *SessionManager) revokeAt(ctx context.Context, claims *Claims, at time.Time, keepExisting bool) error {
	if m.rdb == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	args := redis.SetArgs{TTL: remaining}
	if keepExisting {
		args.Mode = "NX"
	}
	err := m.rdb.SetArgs(ctx, revokedKeyPrefix+claims.ID, at.Unix(), args).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// NeedsRotation reports whether more than half of the token lifetime elapsed.
func (m *SessionManager) NeedsRotation(claims *Claims) bool {
	if claims == nil || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return false
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	return m.now().Sub(claims.IssuedAt.Time) > lifetime/2
}
