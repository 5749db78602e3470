// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gigboard/internal/database"
	"gigboard/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns an in-memory SQLite database with the full schema. The pool
// holds a single connection so every query sees the same database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.ApplySchema(context.Background(), db))
	return db
}

var seq atomic.Uint64

// CreateUser inserts an onboarded user and profile with role.
func CreateUser(t testing.TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	n := seq.Add(1)
	user := &models.User{
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "x",
		AuthProvider: models.ProviderPassword,
	}
	require.NoError(t, db.Omit("Profile").Create(user).Error)

	profile := &models.Profile{
		ID:          user.ID,
		Role:        role,
		FullName:    fmt.Sprintf("User %d", n),
		IsOnboarded: true,
	}
	require.NoError(t, db.Create(profile).Error)
	user.Profile = profile
	return user
}

// CreateJob inserts an open job owned by employerID.
func CreateJob(t testing.TB, db *gorm.DB, employerID uint) *models.Job {
	t.Helper()
	job := &models.Job{
		EmployerID:  employerID,
		Title:       "Build a landing page",
		Description: "Single page marketing site with a signup form.",
		Category:    "web",
		BudgetType:  models.BudgetFixed,
		BudgetMin:   300,
		BudgetMax:   800,
		Skills:      []string{"HTML", "CSS"},
		Status:      models.JobOpen,
	}
	require.NoError(t, db.Omit("Employer", "Proposals").Create(job).Error)
	return job
}

// CreateProposal inserts a proposal with the given status.
func CreateProposal(t testing.TB, db *gorm.DB, jobID, freelancerID uint, status models.ProposalStatus) *models.Proposal {
	t.Helper()
	p := &models.Proposal{
		JobID:         jobID,
		FreelancerID:  freelancerID,
		CoverLetter:   "I have shipped several similar pages.",
		BidAmount:     500,
		BidType:       models.BudgetFixed,
		EstimatedDays: 7,
		Status:        status,
	}
	require.NoError(t, db.Omit("Job", "Freelancer").Create(p).Error)
	return p
}

// CreateContract inserts an active contract for a hired proposal.
func CreateContract(t testing.TB, db *gorm.DB, job *models.Job, p *models.Proposal, escrow int64) *models.Contract {
	t.Helper()
	c := &models.Contract{
		ProposalID:   p.ID,
		JobID:        job.ID,
		EmployerID:   job.EmployerID,
		FreelancerID: p.FreelancerID,
		Status:       models.ContractActive,
		EscrowAmount: escrow,
	}
	require.NoError(t, db.Omit("Job", "Employer", "Freelancer", "Milestones").Create(c).Error)
	return c
}

// CreateMilestone inserts a milestone with the given status.
func CreateMilestone(t testing.TB, db *gorm.DB, contractID uint, amount int64, status models.MilestoneStatus) *models.Milestone {
	t.Helper()
	m := &models.Milestone{
		ContractID: contractID,
		Title:      "First draft",
		Amount:     amount,
		Status:     status,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

// Count returns the number of rows of model matching the optional condition.
func Count(t testing.TB, db *gorm.DB, model interface{}, query ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if len(query) > 0 {
		q = q.Where(query[0], query[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
