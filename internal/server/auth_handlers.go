package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gigboard/internal/config"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie = "gb_oauth_state"
	oauthNextCookie  = "gb_oauth_next"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// sessionResponse is the payload of GET /auth/session and of successful
// sign-ins.
type sessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *models.User    `json:"user,omitempty"`
	Profile       *models.Profile `json:"profile,omitempty"`
	Home          string          `json:"home,omitempty"`
}

func googleOAuthConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.GoogleOAuthEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

// startSession issues a token for user and sets the session cookie.
func (s *Server) startSession(c *fiber.Ctx, user *models.User) (*sessionResponse, error) {
	token, _, err := s.sessions.Issue(user.ID, user.Profile.Role)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.setSessionCookie(c, token)
	c.Locals("userID", user.ID)
	return &sessionResponse{
		Authenticated: true,
		User:          user,
		Profile:       user.Profile,
		Home: homeFor(&policy.Actor{
			UserID:    user.ID,
			Role:      user.Profile.Role,
			Onboarded: user.Profile.IsOnboarded,
		}),
	}, nil
}

// Signup handles POST /api/auth/signup
// @Summary Sign up with email
// @Description Register an email/password account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var in service.SignupInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	user, err := s.users.Signup(c.UserContext(), in)
	if err != nil {
		return respondAction(c, 0, "", nil, err)
	}
	session, err := s.startSession(c, user)
	return respondAction(c, fiber.StatusCreated, "Welcome to GigBoard.", session, err)
}

// Signin handles POST /api/auth/signin
// @Summary Sign in with email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SigninInput true "Credentials"
// @Success 200 {object} models.ActionResult
// @Failure 401 {object} models.ActionResult
// @Router /auth/signin [post]
func (s *Server) Signin(c *fiber.Ctx) error {
	var in service.SigninInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	user, err := s.users.Signin(c.UserContext(), in)
	if err != nil {
		return respondAction(c, 0, "", nil, err)
	}
	session, err := s.startSession(c, user)
	return respondAction(c, fiber.StatusOK, "Signed in.", session, err)
}

// Signout handles POST /api/auth/signout
// @Summary Sign out
// @Description Revoke the current session and clear the cookie
// @Tags auth
// @Produce json
// @Success 200 {object} models.ActionResult
// @Router /auth/signout [post]
func (s *Server) Signout(c *fiber.Ctx) error {
	if id := identity(c); id != nil {
		if err := s.sessions.Revoke(c.UserContext(), id.Claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session revocation failed", slog.String("error", err.Error()))
		}
	}
	s.clearSessionCookie(c)
	return respondAction(c, fiber.StatusOK, "Signed out.", nil, nil)
}

// GetSession handles GET /api/auth/session
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} sessionResponse
// @Router /auth/session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	id := identity(c)
	if id == nil {
		return c.JSON(sessionResponse{Authenticated: false})
	}
	return c.JSON(sessionResponse{
		Authenticated: true,
		User:          id.User,
		Profile:       id.Profile,
		Home:          homeFor(actor(c)),
	})
}

// GoogleLogin handles GET /api/auth/google
// @Summary Start Google sign-in
// @Tags auth
// @Param next query string false "Page to return to"
// @Success 307
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/google [get]
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	if s.oauth == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Google sign-in", "config"))
	}

	state, err := randomState(32)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	s.setShortCookie(c, oauthStateCookie, state)
	s.setShortCookie(c, oauthNextCookie, safeNext(c.Query("next")))

	return c.Redirect(s.oauth.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /api/auth/google/callback
// @Summary Finish Google sign-in
// @Tags auth
// @Param code query string true "Authorization code"
// @Param state query string true "Anti-forgery state"
// @Success 303
// @Router /auth/google/callback [get]
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	if s.oauth == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Google sign-in", "config"))
	}

	next := safeNext(c.Cookies(oauthNextCookie))
	expected := c.Cookies(oauthStateCookie)
	s.clearShortCookie(c, oauthStateCookie)
	s.clearShortCookie(c, oauthNextCookie)

	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" || expected == "" || state != expected {
		return s.signInFailed(c, "Google sign-in could not be verified. Please try again.")
	}

	ctx := c.UserContext()
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "google code exchange failed", slog.String("error", err.Error()))
		return s.signInFailed(c, "Google sign-in failed. Please try again.")
	}

	resp, err := s.oauth.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "google userinfo failed", slog.String("error", err.Error()))
		return s.signInFailed(c, "Google sign-in failed. Please try again.")
	}
	defer resp.Body.Close()

	var gu service.GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return s.signInFailed(c, "Google sign-in failed. Please try again.")
	}
	gu.Email = strings.ToLower(strings.TrimSpace(gu.Email))

	user, err := s.users.GoogleUpsert(ctx, gu)
	if err != nil {
		return s.signInFailed(c, models.AsAppError(err).Message)
	}
	session, err := s.startSession(c, user)
	if err != nil {
		return s.signInFailed(c, models.GenericErrorMessage)
	}

	if next == "/" {
		next = session.Home
	}
	return c.Redirect(s.config.FrontendURL+next, fiber.StatusSeeOther)
}

func (s *Server) signInFailed(c *fiber.Ctx, message string) error {
	return c.Redirect(s.config.FrontendURL+"/sign-in?error="+url.QueryEscape(message), fiber.StatusSeeOther)
}

func (s *Server) setShortCookie(c *fiber.Ctx, name, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearShortCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func randomState(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// safeNext keeps redirects on our own site: only absolute paths, never
// protocol-relative ones.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}
