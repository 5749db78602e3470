package policy

import (
	"errors"
	"testing"

	"gigboard/internal/auth"
	"gigboard/internal/models"

	"github.com/stretchr/testify/assert"
)

var (
	admin      = &Actor{UserID: 1, Role: models.RoleAdmin, Onboarded: true}
	owner      = &Actor{UserID: 2, Role: models.RoleEmployer, Onboarded: true}
	employer   = &Actor{UserID: 3, Role: models.RoleEmployer, Onboarded: true}
	freelancer = &Actor{UserID: 4, Role: models.RoleFreelancer, Onboarded: true}
	other      = &Actor{UserID: 5, Role: models.RoleFreelancer, Onboarded: true}
	suspended  = &Actor{UserID: 6, Role: models.RoleEmployer, Onboarded: true, Suspended: true}
	fresh      = &Actor{UserID: 7, Role: models.RoleFreelancer}
)

func code(err error) string {
	if err == nil {
		return ""
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "?"
}

func TestRuleTable(t *testing.T) {
	job := &models.Job{ID: 10, EmployerID: owner.UserID}
	proposal := &models.Proposal{ID: 20, JobID: job.ID, FreelancerID: freelancer.UserID}
	contract := &models.Contract{ID: 30, EmployerID: owner.UserID, FreelancerID: freelancer.UserID}

	const (
		ok     = ""
		denied = models.CodeForbidden
		anon   = models.CodeUnauthorized
	)

	tests := []struct {
		name  string
		check func(*Actor) error
		want  map[*Actor]string
	}{
		{"job read", func(a *Actor) error { return CanReadJob(a, job) },
			map[*Actor]string{nil: anon, admin: ok, owner: ok, employer: ok, freelancer: ok}},
		{"job write", func(a *Actor) error { return CanWriteJob(a, job) },
			map[*Actor]string{nil: anon, admin: ok, owner: ok, employer: denied, freelancer: denied}},
		{"job status", func(a *Actor) error { return CanChangeJobStatus(a, job) },
			map[*Actor]string{admin: ok, owner: ok, employer: denied, suspended: denied}},
		{"proposal read", func(a *Actor) error { return CanReadProposal(a, proposal, job) },
			map[*Actor]string{nil: anon, admin: ok, owner: ok, freelancer: ok, employer: denied, other: denied}},
		{"proposal write", func(a *Actor) error { return CanWriteProposal(a, proposal) },
			map[*Actor]string{admin: ok, freelancer: ok, owner: denied, other: denied}},
		{"proposal status", func(a *Actor) error { return CanChangeProposalStatus(a, job) },
			map[*Actor]string{admin: ok, owner: ok, freelancer: denied, employer: denied}},
		{"contract read", func(a *Actor) error { return CanReadContract(a, contract) },
			map[*Actor]string{nil: anon, admin: ok, owner: ok, freelancer: ok, employer: denied, other: denied}},
		{"contract write", func(a *Actor) error { return CanWriteContract(a, contract) },
			map[*Actor]string{admin: ok, owner: ok, freelancer: ok, other: denied}},
		{"contract employer", func(a *Actor) error { return IsContractEmployer(a, contract) },
			map[*Actor]string{owner: ok, employer: denied, freelancer: denied, admin: denied}},
		{"contract freelancer", func(a *Actor) error { return IsContractFreelancer(a, contract) },
			map[*Actor]string{freelancer: ok, other: denied, owner: denied}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for actor, want := range tt.want {
				assert.Equal(t, want, code(tt.check(actor)), "actor %+v", actor)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	assert.NoError(t, RequireRole(owner, models.RoleEmployer))
	assert.NoError(t, RequireRole(admin, models.RoleEmployer, models.RoleAdmin))

	err := RequireRole(freelancer, models.RoleEmployer)
	assert.Equal(t, models.CodeForbidden, code(err))
	assert.Equal(t, ReasonRole, err.Error())

	err = RequireRole(suspended, models.RoleEmployer)
	assert.Equal(t, ReasonSuspended, err.Error())

	err = RequireRole(fresh, models.RoleFreelancer)
	assert.Equal(t, models.CodeForbidden, code(err))
	assert.Equal(t, ReasonOnboarding, err.Error())
	assert.NoError(t, RequireAuth(fresh))
	assert.NoError(t, RequireAdmin(&Actor{UserID: 8, Role: models.RoleAdmin}))

	assert.Equal(t, models.CodeUnauthorized, code(RequireAdmin(nil)))
}

func TestActorFrom(t *testing.T) {
	assert.Nil(t, ActorFrom(nil))
	assert.Nil(t, ActorFrom(&auth.Identity{User: &models.User{ID: 1}}))

	a := ActorFrom(&auth.Identity{
		User:    &models.User{ID: 9},
		Profile: &models.Profile{ID: 9, Role: models.RoleEmployer, IsOnboarded: true, IsSuspended: true},
	})
	assert.Equal(t, &Actor{UserID: 9, Role: models.RoleEmployer, Onboarded: true, Suspended: true}, a)
}

func TestIsOwner(t *testing.T) {
	assert.True(t, IsOwner(3, 3))
	assert.False(t, IsOwner(3, 4))
	assert.False(t, IsOwner(0, 0))
}
