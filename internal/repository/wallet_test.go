package repository

import (
	"context"
	"testing"

	"gigboard/internal/models"
	"gigboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRepository_BalanceDerivedFromLedger(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	f := testutil.CreateUser(t, db, models.RoleFreelancer)
	other := testutil.CreateUser(t, db, models.RoleFreelancer)

	m1, m2 := uint(1), uint(2)
	entries := []models.WalletTransaction{
		{UserID: f.ID, Type: models.TransactionRelease, Amount: 540, Fee: 60, Status: models.TransactionPending, MilestoneID: &m1},
		{UserID: f.ID, Type: models.TransactionRelease, Amount: 900, Fee: 100, Status: models.TransactionCompleted, MilestoneID: &m2},
		{UserID: f.ID, Type: models.TransactionWithdrawal, Amount: 300, Status: models.TransactionPending},
		{UserID: f.ID, Type: models.TransactionWithdrawal, Amount: 999, Status: models.TransactionFailed},
		{UserID: other.ID, Type: models.TransactionDeposit, Amount: 5000, Status: models.TransactionCompleted},
	}
	for i := range entries {
		require.NoError(t, repo.CreateTransaction(ctx, &entries[i]))
	}

	bal, err := repo.Balance(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Released: 1440, Pending: 540, Withdrawn: 300, Available: 1140}, bal)

	empty, err := repo.Balance(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{}, empty)
}

func TestWalletRepository_OneReleasePerMilestone(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	f := testutil.CreateUser(t, db, models.RoleFreelancer)

	mid := uint(7)
	require.NoError(t, repo.CreateTransaction(ctx, &models.WalletTransaction{UserID: f.ID, Type: models.TransactionRelease, Amount: 10, MilestoneID: &mid}))

	err := repo.CreateTransaction(ctx, &models.WalletTransaction{UserID: f.ID, Type: models.TransactionRelease, Amount: 10, MilestoneID: &mid})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
}

func TestWalletRepository_WithdrawalTransitions(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	f := testutil.CreateUser(t, db, models.RoleFreelancer)

	w := &models.WithdrawalRequest{FreelancerID: f.ID, Amount: 100, Method: models.WithdrawalWallet, WalletAddress: "0xabc", Status: models.WithdrawalPending}
	require.NoError(t, repo.CreateWithdrawal(ctx, w))
	require.NoError(t, repo.CreateTransaction(ctx, &models.WalletTransaction{UserID: f.ID, Type: models.TransactionWithdrawal, Amount: 100, WithdrawalID: &w.ID}))

	ok, err := repo.TransitionWithdrawal(ctx, w.ID, models.WithdrawalProcessing, models.WithdrawalCompleted, nil)
	require.NoError(t, err)
	assert.False(t, ok, "cannot skip processing")

	ok, err = repo.TransitionWithdrawal(ctx, w.ID, models.WithdrawalPending, models.WithdrawalProcessing, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.CompleteWithdrawalEntries(ctx, w.ID))
	txs, err := repo.ListTransactions(ctx, f.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionCompleted, txs[0].Status)

	n, err := repo.CountWithdrawals(ctx, models.WithdrawalProcessing)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
