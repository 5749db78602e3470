package models

import "time"

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractCompleted ContractStatus = "completed"
	ContractCancelled ContractStatus = "cancelled"
	ContractDisputed  ContractStatus = "disputed"
)

func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractActive, ContractCompleted, ContractCancelled, ContractDisputed:
		return true
	}
	return false
}

// Contract is created exactly once from a hired proposal.
type Contract struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ProposalID   uint           `gorm:"not null;uniqueIndex" json:"proposal_id"`
	JobID        uint           `gorm:"not null;index" json:"job_id"`
	Job          *Job           `gorm:"foreignKey:JobID" json:"job,omitempty"`
	EmployerID   uint           `gorm:"not null;index" json:"employer_id"`
	Employer     *Profile       `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
	FreelancerID uint           `gorm:"not null;index" json:"freelancer_id"`
	Freelancer   *Profile       `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Status       ContractStatus `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	EscrowAmount int64          `gorm:"not null" json:"escrow_amount"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Milestones   []Milestone    `gorm:"foreignKey:ContractID" json:"milestones,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsParticipant reports whether userID is the employer or the freelancer.
func (c *Contract) IsParticipant(userID uint) bool {
	return c.EmployerID == userID || c.FreelancerID == userID
}

// MilestoneStatus is the review state of a milestone.
type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "pending"
	MilestoneInReview MilestoneStatus = "in_review"
	MilestoneApproved MilestoneStatus = "approved"
	MilestoneRejected MilestoneStatus = "rejected"
)

func (s MilestoneStatus) IsValid() bool {
	switch s {
	case MilestonePending, MilestoneInReview, MilestoneApproved, MilestoneRejected:
		return true
	}
	return false
}

// Milestone is a unit of contract work with its own payment.
type Milestone struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ContractID  uint            `gorm:"not null;index" json:"contract_id"`
	Title       string          `gorm:"size:200;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      int64           `gorm:"not null" json:"amount"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Status      MilestoneStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Deliverable string          `gorm:"type:text" json:"deliverable"`
	Notes       string          `gorm:"type:text" json:"notes"`
	Feedback    string          `gorm:"type:text" json:"feedback"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
