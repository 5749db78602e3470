package models

import "time"

// ProposalStatus is the lifecycle state of a proposal.
type ProposalStatus string

const (
	ProposalSubmitted   ProposalStatus = "submitted"
	ProposalShortlisted ProposalStatus = "shortlisted"
	ProposalHired       ProposalStatus = "hired"
	ProposalWithdrawn   ProposalStatus = "withdrawn"
	ProposalDeclined    ProposalStatus = "declined"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalSubmitted, ProposalShortlisted, ProposalHired, ProposalWithdrawn, ProposalDeclined:
		return true
	}
	return false
}

// IsPending reports whether the proposal is still awaiting a decision.
func (s ProposalStatus) IsPending() bool {
	return s == ProposalSubmitted || s == ProposalShortlisted
}

// ActiveProposalStatuses are the statuses that block a second proposal for the
// same job and freelancer.
var ActiveProposalStatuses = []ProposalStatus{ProposalSubmitted, ProposalShortlisted, ProposalHired}

// Proposal is a freelancer's bid on a job.
type Proposal struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	JobID         uint           `gorm:"not null;index:idx_proposal_job_freelancer" json:"job_id"`
	Job           *Job           `gorm:"foreignKey:JobID" json:"job,omitempty"`
	FreelancerID  uint           `gorm:"not null;index:idx_proposal_job_freelancer;index" json:"freelancer_id"`
	Freelancer    *Profile       `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	CoverLetter   string         `gorm:"type:text;not null" json:"cover_letter"`
	BidAmount     int64          `gorm:"not null" json:"bid_amount"`
	BidType       BudgetType     `gorm:"type:varchar(10);not null" json:"bid_type"`
	EstimatedDays int            `json:"estimated_days"`
	Status        ProposalStatus `gorm:"type:varchar(20);not null;default:submitted;index" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
