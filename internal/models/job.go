package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobDraft      JobStatus = "draft"
	JobOpen       JobStatus = "open"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobDraft, JobOpen, JobInProgress, JobCompleted, JobCancelled:
		return true
	}
	return false
}

// jobTransitions lists the statuses an owner may move a job to by hand.
// A job with a contract follows the contract: in_progress is entered by
// hiring and left only by completing the contract or cancelling it through
// a dispute.
var jobTransitions = map[JobStatus][]JobStatus{
	JobDraft: {JobOpen, JobCancelled},
	JobOpen:  {JobDraft, JobCancelled},
}

// CanTransition reports whether a manual status change from s to next is allowed.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BudgetType is shared by job budgets and proposal bids.
type BudgetType string

const (
	BudgetFixed  BudgetType = "fixed"
	BudgetHourly BudgetType = "hourly"
)

func (b BudgetType) IsValid() bool {
	return b == BudgetFixed || b == BudgetHourly
}

// Job is a posting created by an employer.
type Job struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	EmployerID  uint                        `gorm:"not null;index" json:"employer_id"`
	Employer    *Profile                    `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
	Title       string                      `gorm:"size:200;not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Category    string                      `gorm:"size:80;index" json:"category"`
	BudgetType  BudgetType                  `gorm:"type:varchar(10);not null" json:"budget_type"`
	BudgetMin   int64                       `json:"budget_min"`
	BudgetMax   int64                       `json:"budget_max"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`
	Status      JobStatus                   `gorm:"type:varchar(20);not null;default:open;index" json:"status"`
	Proposals   []Proposal                  `gorm:"foreignKey:JobID" json:"proposals,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}
