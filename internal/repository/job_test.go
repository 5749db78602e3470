package repository

import (
	"context"
	"testing"

	"gigboard/internal/models"
	"gigboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepository_SkillsRoundTripInOrder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	employer := testutil.CreateUser(t, db, models.RoleEmployer)

	job := &models.Job{
		EmployerID:  employer.ID,
		Title:       "Mobile app",
		Description: "Flutter client",
		BudgetType:  models.BudgetHourly,
		BudgetMin:   20,
		BudgetMax:   40,
		Skills:      []string{"A", "B"},
		Status:      models.JobOpen,
	}
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, []string(got.Skills))
}

func TestJobRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	e1 := testutil.CreateUser(t, db, models.RoleEmployer)
	e2 := testutil.CreateUser(t, db, models.RoleEmployer)

	j1 := testutil.CreateJob(t, db, e1.ID)
	j2 := testutil.CreateJob(t, db, e2.ID)
	require.NoError(t, repo.Update(ctx, j2.ID, map[string]interface{}{"title": "Rust CLI tool", "category": "tools"}))
	j3 := testutil.CreateJob(t, db, e2.ID)
	ok, err := repo.TransitionStatus(ctx, j3.ID, []models.JobStatus{models.JobOpen}, models.JobDraft)
	require.NoError(t, err)
	require.True(t, ok)

	tests := []struct {
		name   string
		filter JobFilter
		want   []uint
	}{
		{"all", JobFilter{}, []uint{j3.ID, j2.ID, j1.ID}},
		{"open only", JobFilter{Status: models.JobOpen}, []uint{j2.ID, j1.ID}},
		{"by employer", JobFilter{EmployerID: e1.ID}, []uint{j1.ID}},
		{"by category", JobFilter{Category: "tools"}, []uint{j2.ID}},
		{"search is case insensitive", JobFilter{Search: "rust"}, []uint{j2.ID}},
		{"combined", JobFilter{EmployerID: e2.ID, Status: models.JobDraft}, []uint{j3.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, total, err := repo.List(ctx, tt.filter, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
			var ids []uint
			for _, j := range jobs {
				ids = append(ids, j.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestJobRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	employer := testutil.CreateUser(t, db, models.RoleEmployer)

	titles := map[string]uint{}
	for _, title := range []string{"Grow sales 100% online", "Grow sales 1000 units", "Fix user_id index", "Fix userXid index"} {
		j := testutil.CreateJob(t, db, employer.ID)
		require.NoError(t, repo.Update(ctx, j.ID, map[string]interface{}{"title": title, "description": "plain"}))
		titles[title] = j.ID
	}

	tests := []struct {
		search string
		want   []uint
	}{
		{"100%", []uint{titles["Grow sales 100% online"]}},
		{"user_id", []uint{titles["Fix user_id index"]}},
		{"%", []uint{titles["Grow sales 100% online"]}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			jobs, total, err := repo.List(ctx, JobFilter{Search: tt.search}, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
			var ids []uint
			for _, j := range jobs {
				ids = append(ids, j.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestJobRepository_TransitionStatusIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	job := testutil.CreateJob(t, db, testutil.CreateUser(t, db, models.RoleEmployer).ID)

	ok, err := repo.TransitionStatus(ctx, job.ID, []models.JobStatus{models.JobOpen}, models.JobInProgress)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, job.ID, []models.JobStatus{models.JobOpen}, models.JobInProgress)
	require.NoError(t, err)
	assert.False(t, ok, "second transition from open must not match")
}

func TestJobRepository_GetDetailPreloadsProposals(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	employer := testutil.CreateUser(t, db, models.RoleEmployer)
	f := testutil.CreateUser(t, db, models.RoleFreelancer)
	job := testutil.CreateJob(t, db, employer.ID)
	testutil.CreateProposal(t, db, job.ID, f.ID, models.ProposalSubmitted)

	got, err := NewJobRepository(db).GetDetail(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Employer)
	require.Len(t, got.Proposals, 1)
	require.NotNil(t, got.Proposals[0].Freelancer)
	assert.Equal(t, f.ID, got.Proposals[0].Freelancer.ID)

	_, err = NewJobRepository(db).GetDetail(ctx, 9999)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Job not found.", appErr.Message)
}

func TestProposalRepository_FindActive(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewProposalRepository(db)
	job := testutil.CreateJob(t, db, testutil.CreateUser(t, db, models.RoleEmployer).ID)
	f := testutil.CreateUser(t, db, models.RoleFreelancer)

	none, err := repo.FindActive(ctx, job.ID, f.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	p := testutil.CreateProposal(t, db, job.ID, f.ID, models.ProposalWithdrawn)
	none, err = repo.FindActive(ctx, job.ID, f.ID)
	require.NoError(t, err)
	assert.Nil(t, none, "withdrawn proposals do not block")

	ok, err := repo.TransitionStatus(ctx, p.ID, []models.ProposalStatus{models.ProposalWithdrawn}, models.ProposalSubmitted)
	require.NoError(t, err)
	require.True(t, ok)

	active, err := repo.FindActive(ctx, job.ID, f.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, p.ID, active.ID)
}
