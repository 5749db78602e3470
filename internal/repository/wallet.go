package repository

import (
	"context"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// WithdrawalFilter narrows withdrawal listings.
type WithdrawalFilter struct {
	FreelancerID uint
	Status       models.WithdrawalStatus
}

// WalletRepository defines persistence operations for the ledger and withdrawals.
type WalletRepository interface {
	CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID uint, limit int) ([]models.WalletTransaction, error)
	// Balance derives the user's funds from the ledger.
	Balance(ctx context.Context, userID uint) (models.Balance, error)
	CompleteWithdrawalEntries(ctx context.Context, withdrawalID uint) error

	CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, filter WithdrawalFilter, limit int) ([]models.WithdrawalRequest, error)
	TransitionWithdrawal(ctx context.Context, id uint, from, to models.WithdrawalStatus, extra map[string]interface{}) (bool, error)
	CountWithdrawals(ctx context.Context, status models.WithdrawalStatus) (int64, error)
}

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return writeError(err, "Funds for this milestone were already released.")
	}
	return nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, userID uint, limit int) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(clampLimit(limit, 50, 200)).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// Balance sums releases and deposits against withdrawals. Failed entries
// are ignored; pending releases count as available since nothing else
// settles them.
func (r *walletRepository) Balance(ctx context.Context, userID uint) (models.Balance, error) {
	var row struct {
		Released  int64
		Pending   int64
		Deposited int64
		Withdrawn int64
	}
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Select(`COALESCE(SUM(CASE WHEN type = ? AND status <> ? THEN amount ELSE 0 END), 0) AS released,
			COALESCE(SUM(CASE WHEN type = ? AND status = ? THEN amount ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN type = ? AND status <> ? THEN amount ELSE 0 END), 0) AS deposited,
			COALESCE(SUM(CASE WHEN type = ? AND status <> ? THEN amount ELSE 0 END), 0) AS withdrawn`,
			models.TransactionRelease, models.TransactionFailed,
			models.TransactionRelease, models.TransactionPending,
			models.TransactionDeposit, models.TransactionFailed,
			models.TransactionWithdrawal, models.TransactionFailed,
		).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return models.Balance{}, models.NewInternalError(err)
	}
	return models.Balance{
		Released:  row.Released,
		Pending:   row.Pending,
		Withdrawn: row.Withdrawn,
		Available: row.Released + row.Deposited - row.Withdrawn,
	}, nil
}

func (r *walletRepository) CompleteWithdrawalEntries(ctx context.Context, withdrawalID uint) error {
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("withdrawal_id = ? AND type = ?", withdrawalID, models.TransactionWithdrawal).
		Update("status", models.TransactionCompleted).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *walletRepository) CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	if err := r.db.WithContext(ctx).Omit("Freelancer").Create(w).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *walletRepository) GetWithdrawal(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, lookupError(err, "Withdrawal request", id)
	}
	return &w, nil
}

func (r *walletRepository) ListWithdrawals(ctx context.Context, filter WithdrawalFilter, limit int) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	q := r.db.WithContext(ctx).Preload("Freelancer")
	if filter.FreelancerID != 0 {
		q = q.Where("freelancer_id = ?", filter.FreelancerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if err := q.Order("created_at DESC").Limit(clampLimit(limit, 50, 200)).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *walletRepository) TransitionWithdrawal(ctx context.Context, id uint, from, to models.WithdrawalStatus, extra map[string]interface{}) (bool, error) {
	fields := map[string]interface{}{"status": to}
	for k, v := range extra {
		fields[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *walletRepository) CountWithdrawals(ctx context.Context, status models.WithdrawalStatus) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
