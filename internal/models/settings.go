package models

import "time"

// Defaults used when no settings row exists yet.
const (
	DefaultCommissionPercent = 10
	DefaultMinWithdrawal     = 1000
)

// Settings is the single platform configuration row.
type Settings struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CommissionPercent int       `gorm:"not null" json:"commission_percent"`
	MinWithdrawal     int64     `gorm:"not null" json:"min_withdrawal"`
	UpdatedBy         uint      `json:"updated_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultSettings returns the values in effect before an admin saves any.
func DefaultSettings() Settings {
	return Settings{
		CommissionPercent: DefaultCommissionPercent,
		MinWithdrawal:     DefaultMinWithdrawal,
	}
}

// Fee returns the platform commission taken from amount.
func (s Settings) Fee(amount int64) int64 {
	return amount * int64(s.CommissionPercent) / 100
}
