package models

import "time"

// DisputeStatus is the state of a dispute.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// DisputeOutcome decides what happens to the contract on resolution.
type DisputeOutcome string

const (
	OutcomeResume DisputeOutcome = "resume"
	OutcomeCancel DisputeOutcome = "cancel"
)

// Dispute is raised by a contract participant and resolved by an admin.
type Dispute struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ContractID uint           `gorm:"not null;index" json:"contract_id"`
	Contract   *Contract      `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	OpenedBy   uint           `gorm:"not null" json:"opened_by"`
	Reason     string         `gorm:"type:text;not null" json:"reason"`
	Status     DisputeStatus  `gorm:"type:varchar(20);not null;default:open;index" json:"status"`
	Resolution string         `gorm:"type:text" json:"resolution,omitempty"`
	Outcome    DisputeOutcome `gorm:"type:varchar(10)" json:"outcome,omitempty"`
	ResolvedBy *uint          `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
