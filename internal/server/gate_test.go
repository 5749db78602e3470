package server

import (
	"net/http"
	"testing"

	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestGateRedirect(t *testing.T) {
	freelancer := &policy.Actor{UserID: 1, Role: models.RoleFreelancer, Onboarded: true}
	employer := &policy.Actor{UserID: 2, Role: models.RoleEmployer, Onboarded: true}
	admin := &policy.Actor{UserID: 3, Role: models.RoleAdmin, Onboarded: true}
	fresh := &policy.Actor{UserID: 4, Role: models.RoleFreelancer}

	tests := []struct {
		name  string
		path  string
		query string
		actor *policy.Actor
		want  string
	}{
		{"anonymous public page", "/jobs", "", nil, ""},
		{"anonymous protected page", "/dashboard", "", nil, "/sign-in?next=%2Fdashboard"},
		{"anonymous keeps query", "/contracts/7", "tab=files", nil, "/sign-in?next=%2Fcontracts%2F7%3Ftab%3Dfiles"},
		{"anonymous job form", "/jobs/new", "", nil, "/sign-in?next=%2Fjobs%2Fnew"},
		{"segment aware prefix", "/administrator", "", nil, ""},
		{"anonymous sign-in", "/sign-in", "", nil, ""},
		{"signed in on sign-in", "/sign-in", "", employer, "/dashboard/employer"},
		{"signed in on sign-up", "/sign-up", "", freelancer, "/dashboard/freelancer"},
		{"admin on sign-in", "/sign-in", "", admin, "/admin"},
		{"not onboarded on sign-in", "/sign-in", "", fresh, "/onboarding"},
		{"not onboarded elsewhere", "/wallet", "", fresh, "/onboarding"},
		{"not onboarded on onboarding", "/onboarding", "", fresh, ""},
		{"onboarded on onboarding", "/onboarding", "", employer, "/dashboard/employer"},
		{"non-admin on admin", "/admin/disputes", "", freelancer, "/dashboard/freelancer"},
		{"admin on admin", "/admin", "", admin, ""},
		{"freelancer on messages", "/messages", "", freelancer, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gateRedirect(tt.path, tt.query, tt.actor))
		})
	}
}

func TestRouteGate_OverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/wallet", nil, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/sign-in?next=%2Fwallet", resp.Header.Get("Location"))

	user := testutil.CreateUser(t, env.db, models.RoleEmployer)
	resp = env.do(t, http.MethodGet, "/sign-in", nil, env.cookieFor(t, user))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard/employer", resp.Header.Get("Location"))

	// API paths are never redirected.
	resp = env.do(t, http.MethodGet, "/api/auth/session", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
