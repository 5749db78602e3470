package models

import "time"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionRelease    TransactionType = "release"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// WalletTransaction is an append-only ledger entry. Balances are derived
// from these rows, never stored.
type WalletTransaction struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	UserID       uint              `gorm:"not null;index" json:"user_id"`
	Type         TransactionType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount       int64             `gorm:"not null" json:"amount"`
	Fee          int64             `gorm:"not null;default:0" json:"fee"`
	Status       TransactionStatus `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	MilestoneID  *uint             `gorm:"uniqueIndex" json:"milestone_id,omitempty"`
	WithdrawalID *uint             `gorm:"index" json:"withdrawal_id,omitempty"`
	Description  string            `json:"description"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// WithdrawalMethod selects the payout rail.
type WithdrawalMethod string

const (
	WithdrawalBank   WithdrawalMethod = "bank"
	WithdrawalWallet WithdrawalMethod = "wallet"
)

// WithdrawalStatus is the processing state of a withdrawal.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
)

// Next returns the status an admin advances s to, or false when s is final.
func (s WithdrawalStatus) Next() (WithdrawalStatus, bool) {
	switch s {
	case WithdrawalPending:
		return WithdrawalProcessing, true
	case WithdrawalProcessing:
		return WithdrawalCompleted, true
	}
	return "", false
}

// WithdrawalRequest is a freelancer's payout request.
type WithdrawalRequest struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	FreelancerID  uint             `gorm:"not null;index" json:"freelancer_id"`
	Freelancer    *Profile         `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Amount        int64            `gorm:"not null" json:"amount"`
	Method        WithdrawalMethod `gorm:"type:varchar(10);not null" json:"method"`
	BankName      string           `json:"bank_name,omitempty"`
	AccountName   string           `json:"account_name,omitempty"`
	AccountNumber string           `json:"account_number,omitempty"`
	WalletAddress string           `json:"wallet_address,omitempty"`
	Status        WithdrawalStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Balance is the ledger-derived view of a user's funds.
type Balance struct {
	Released  int64 `json:"released"`
	Pending   int64 `json:"pending"`
	Withdrawn int64 `json:"withdrawn"`
	Available int64 `json:"available"`
}
