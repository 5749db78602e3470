package server

import (
	"log/slog"
	"strings"
	"time"

	"gigboard/internal/auth"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// rotationGrace is how long a rotated cookie token keeps working, so
// requests the browser already sent with it do not fail.
const rotationGrace = 30 * time.Second

// sessionToken reads the session cookie, falling back to a bearer token for
// non-browser clients. fromCookie tells which one was used.
func (s *Server) sessionToken(c *fiber.Ctx) (token string, fromCookie bool) {
	if token := c.Cookies(s.config.SessionCookieName); token != "" {
		return token, true
	}
	authHeader := c.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token), false
	}
	return "", false
}

// Session resolves the request's identity once and stores it for every later
// handler. Requests without a usable session continue anonymously.
func (s *Server) Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, fromCookie := s.sessionToken(c)
		if token == "" || s.resolver == nil {
			return c.Next()
		}

		id, err := s.resolver.Resolve(c.UserContext(), token)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session lookup failed", slog.String("error", err.Error()))
			return c.Next()
		}
		if id == nil {
			return c.Next()
		}

		c.Locals("identity", id)
		c.Locals("userID", id.UserID())
		ctx := auth.WithIdentity(c.UserContext(), id)
		c.SetUserContext(middleware.WithUserID(ctx, id.UserID()))

		// Bearer clients hold their token outside the cookie jar and never
		// see a replacement, so only cookie sessions rotate.
		if fromCookie && s.sessions.NeedsRotation(id.Claims) {
			s.rotateSession(c, id)
		}
		return c.Next()
	}
}

// rotateSession replaces a half-expired cookie token with a fresh one. The
// old token is retired after a short grace period.
func (s *Server) rotateSession(c *fiber.Ctx, id *auth.Identity) {
	token, claims, err := s.sessions.Issue(id.UserID(), id.Role())
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "session rotation failed", slog.String("error", err.Error()))
		return
	}
	if err := s.sessions.Retire(c.UserContext(), id.Claims, rotationGrace); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "retiring rotated session failed", slog.String("error", err.Error()))
	}
	id.Claims = claims
	s.setSessionCookie(c, token)
}

// SessionRequired rejects anonymous requests with 401.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identity(c) == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("You need to sign in."))
		}
		return c.Next()
	}
}

// AdminRequired admits admins only. It must run after SessionRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := policy.RequireAdmin(actor(c)); err != nil {
			appErr := models.AsAppError(err)
			return models.RespondWithError(c, models.HTTPStatus(appErr.Code), appErr)
		}
		return c.Next()
	}
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.sessions.TTL()),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
