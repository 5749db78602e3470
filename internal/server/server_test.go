package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"gigboard/internal/auth"
	"gigboard/internal/config"
	"gigboard/internal/models"
	"gigboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            "test-secret-that-is-long-enough-for-hs256",
		SessionCookieName:    "gb_session",
		SessionTTLHours:      24,
		AllowedOrigins:       "http://localhost:3000",
		FrontendURL:          "http://localhost:3000",
		ImageUploadDir:       t.TempDir(),
		ImageMaxUploadSizeMB: 2,
		MediaBaseURL:         "/media",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db := testutil.NewDB(t)
	s, err := NewServerWithDeps(testConfig(t), db, rdb)
	require.NoError(t, err)
	return &testEnv{server: s, app: s.NewApp(), db: db, mr: mr}
}

// cookieFor issues a session for user and returns it as a request cookie.
func (e *testEnv) cookieFor(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, _, err := e.server.sessions.Issue(user.ID, user.Profile.Role)
	require.NoError(t, err)
	return &http.Cookie{Name: "gb_session", Value: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type actionBody struct {
	Status  models.ActionStatus `json:"status"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Data    json.RawMessage     `json:"data"`
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"proposalId", "proposal ID"},
		{"contractMilestoneId", "contract milestone ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/jobs/4", safeNext("/jobs/4"))
	assert.Equal(t, "/", safeNext(""))
	assert.Equal(t, "/", safeNext("https://evil.example"))
	assert.Equal(t, "/", safeNext("//evil.example"))
	assert.Equal(t, "/", safeNext(`/\evil.example`))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]interface{}](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadiness_WithoutDatabase(t *testing.T) {
	s, err := NewServerWithDeps(testConfig(t), nil, nil)
	require.NoError(t, err)
	app := s.NewApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthFlow_SignupSessionSignout(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":     "Ada@Example.com",
		"password":  "Sup3rSecretPass",
		"full_name": "Ada Lovelace",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "gb_session" {
			session = c
		}
	}
	require.NotNil(t, session, "signup sets the session cookie")
	assert.True(t, session.HttpOnly)

	body := decode[actionBody](t, resp)
	assert.Equal(t, models.ActionSuccess, body.Status)

	resp = env.do(t, http.MethodGet, "/api/auth/session", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decode[sessionResponse](t, resp)
	assert.True(t, current.Authenticated)
	assert.Equal(t, "ada@example.com", current.User.Email)
	assert.Equal(t, models.RoleFreelancer, current.Profile.Role)
	assert.Equal(t, "/onboarding", current.Home)

	resp = env.do(t, http.MethodPost, "/api/auth/signout", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The old token is revoked even though the client might still send it.
	resp = env.do(t, http.MethodGet, "/api/auth/session", nil, session)
	current = decode[sessionResponse](t, resp)
	assert.False(t, current.Authenticated)
}

func TestAuth_SigninRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":     "grace@example.com",
		"password":  "Sup3rSecretPass",
		"full_name": "Grace Hopper",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "grace@example.com",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[actionBody](t, resp)
	assert.Equal(t, models.ActionError, body.Status)
	assert.Equal(t, models.CodeUnauthorized, body.Code)

	resp = env.do(t, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "GRACE@example.com",
		"password": "Sup3rSecretPass",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_GoogleDisabledWithoutConfig(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/auth/google", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/me", "/api/jobs", "/api/wallet", "/api/admin/overview"} {
		resp := env.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	// A forged token is treated as anonymous.
	resp := env.do(t, http.MethodGet, "/api/me", nil, &http.Cookie{Name: "gb_session", Value: "not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerTokenAccepted(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleFreelancer)
	token, _, err := env.server.sessions.Issue(user.ID, user.Profile.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// agedToken signs a session for user issued 20h ago, past half of the 24h TTL.
func (e *testEnv) agedToken(t *testing.T, user *models.User) string {
	t.Helper()
	issued := time.Now().Add(-20 * time.Hour)
	claims := &auth.Claims{
		Role: user.Profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    auth.Issuer,
			Audience:  jwt.ClaimStrings{auth.Audience},
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(24 * time.Hour)),
			ID:        fmt.Sprintf("aged-%d", user.ID),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(e.server.config.JWTSecret))
	require.NoError(t, err)
	return token
}

func TestSessionRotation_BearerTokenIsNotRotated(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleFreelancer)
	token := env.agedToken(t, user)

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Values("Set-Cookie"))
	}
}

func TestSessionRotation_CookieKeepsGracePeriod(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleFreelancer)
	old := &http.Cookie{Name: "gb_session", Value: env.agedToken(t, user)}

	resp := env.do(t, http.MethodGet, "/api/me", nil, old)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var rotated *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "gb_session" {
			rotated = c
		}
	}
	require.NotNil(t, rotated, "rotation sets a fresh cookie")
	assert.NotEqual(t, old.Value, rotated.Value)

	// A request already sent with the old cookie still succeeds.
	resp = env.do(t, http.MethodGet, "/api/me", nil, old)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/me", nil, &http.Cookie{Name: "gb_session", Value: rotated.Value})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRoutes_Guarded(t *testing.T) {
	env := newTestEnv(t)
	freelancer := testutil.CreateUser(t, env.db, models.RoleFreelancer)
	admin := testutil.CreateUser(t, env.db, models.RoleAdmin)

	resp := env.do(t, http.MethodGet, "/api/admin/overview", nil, env.cookieFor(t, freelancer))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/admin/overview", nil, env.cookieFor(t, admin))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Self-suspension is refused and the flag stays unchanged.
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/suspend", admin.ID), nil, env.cookieFor(t, admin))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var profile models.Profile
	require.NoError(t, env.db.First(&profile, admin.ID).Error)
	assert.False(t, profile.IsSuspended)

	resp = env.do(t, http.MethodGet, "/api/admin/feature-flags", nil, env.cookieFor(t, admin))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSuspendedUserIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	employer := testutil.CreateUser(t, env.db, models.RoleEmployer)
	admin := testutil.CreateUser(t, env.db, models.RoleAdmin)
	cookie := env.cookieFor(t, employer)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/suspend", employer.ID), nil, env.cookieFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/jobs", map[string]interface{}{
		"title":       "Logo design",
		"description": "A clean wordmark for a coffee roastery.",
		"budget_type": "fixed",
		"budget_min":  100,
		"budget_max":  300,
	}, cookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInvalidRouteID(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleFreelancer)

	resp := env.do(t, http.MethodGet, "/api/jobs/abc", nil, env.cookieFor(t, user))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "Invalid job ID.", body.Error)
}

func TestJobStatus_NonOwnerRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, models.RoleEmployer)
	other := testutil.CreateUser(t, env.db, models.RoleEmployer)
	job := testutil.CreateJob(t, env.db, owner.ID)

	resp := env.do(t, http.MethodPatch, fmt.Sprintf("/api/jobs/%d/status", job.ID),
		map[string]string{"status": "cancelled"}, env.cookieFor(t, other))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode[actionBody](t, resp)
	assert.Equal(t, models.ActionError, body.Status)

	var stored models.Job
	require.NoError(t, env.db.First(&stored, job.ID).Error)
	assert.Equal(t, models.JobOpen, stored.Status)
}

func TestHireOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	employer := testutil.CreateUser(t, env.db, models.RoleEmployer)
	freelancer := testutil.CreateUser(t, env.db, models.RoleFreelancer)
	job := testutil.CreateJob(t, env.db, employer.ID)
	proposal := testutil.CreateProposal(t, env.db, job.ID, freelancer.ID, models.ProposalShortlisted)
	cookie := env.cookieFor(t, employer)
	path := fmt.Sprintf("/api/jobs/%d/proposals/%d/hire", job.ID, proposal.ID)

	resp := env.do(t, http.MethodPost, path, map[string]int64{"escrow_amount": 600}, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[actionBody](t, resp)
	assert.Equal(t, models.ActionSuccess, body.Status)

	var contract models.Contract
	require.NoError(t, json.Unmarshal(body.Data, &contract))
	assert.Equal(t, models.ContractActive, contract.Status)
	assert.Equal(t, int64(600), contract.EscrowAmount)

	resp = env.do(t, http.MethodPost, path, map[string]int64{"escrow_amount": 600}, cookie)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, int64(1), testutil.Count(t, env.db, &models.Contract{}))

	// The freelancer now sees the contract workspace.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/contracts/%d", contract.ID), nil, env.cookieFor(t, freelancer))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendMessageOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	employer := testutil.CreateUser(t, env.db, models.RoleEmployer)
	freelancer := testutil.CreateUser(t, env.db, models.RoleFreelancer)
	outsider := testutil.CreateUser(t, env.db, models.RoleFreelancer)
	job := testutil.CreateJob(t, env.db, employer.ID)
	proposal := testutil.CreateProposal(t, env.db, job.ID, freelancer.ID, models.ProposalHired)
	contract := testutil.CreateContract(t, env.db, job, proposal, 1000)
	path := fmt.Sprintf("/api/contracts/%d/messages", contract.ID)

	resp := env.do(t, http.MethodPost, path, map[string]string{"content": "Draft is up."}, env.cookieFor(t, freelancer))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, path, nil, env.cookieFor(t, employer))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages := decode[[]models.Message](t, resp)
	require.Len(t, messages, 1)
	assert.Equal(t, "Draft is up.", messages[0].Content)

	resp = env.do(t, http.MethodGet, path, nil, env.cookieFor(t, outsider))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAIGenerate_UnavailableWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleFreelancer)

	resp := env.do(t, http.MethodPost, "/api/ai/generate", map[string]string{
		"kind":   "bio",
		"prompt": "Backend developer with ten years of Go.",
	}, env.cookieFor(t, user))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocketRoute_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleFreelancer)

	resp := env.do(t, http.MethodGet, "/api/ws/chat", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/ws/chat", nil, env.cookieFor(t, user))
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
