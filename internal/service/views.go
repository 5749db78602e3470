package service

import (
	"context"

	"gigboard/internal/cache"
	"gigboard/internal/models"
	"gigboard/internal/policy"
	"gigboard/internal/repository"

	"gorm.io/gorm"
)

// HistoryLimit is how many recent messages a contract workspace shows.
const HistoryLimit = 200

// JobDetailView is a job page. Proposals holds every bid for the owner and
// admins; any other freelancer sees only their own.
type JobDetailView struct {
	Job           *models.Job       `json:"job"`
	Proposals     []models.Proposal `json:"proposals"`
	ProposalCount int               `json:"proposal_count"`
	CanEdit       bool              `json:"can_edit"`
	HasApplied    bool              `json:"has_applied"`
}

type JobBoardFilter struct {
	Category   string `query:"category"`
	Search     string `query:"q"`
	BudgetType string `query:"budget_type"`
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
}

type JobBoardView struct {
	Jobs     []models.Job `json:"jobs"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

type ContractWorkspaceView struct {
	Contract *models.Contract `json:"contract"`
	Messages []models.Message `json:"messages"`
	// ViewerRole is employer, freelancer or admin relative to this contract.
	ViewerRole string `json:"viewer_role"`
	// Online maps each participant's user id to whether they have chat open.
	Online map[uint]bool `json:"online"`
}

type FreelancerDashboardView struct {
	ActiveContracts []models.Contract               `json:"active_contracts"`
	Proposals       map[models.ProposalStatus]int64 `json:"proposals_by_status"`
	RecentProposals []models.Proposal               `json:"recent_proposals"`
	Balance         models.Balance                  `json:"balance"`
}

type EmployerDashboardView struct {
	Jobs            map[models.JobStatus]int64 `json:"jobs_by_status"`
	ActiveContracts []models.Contract          `json:"active_contracts"`
	EscrowCommitted int64                      `json:"escrow_committed"`
}

type AdminOverviewView struct {
	UsersByRole        map[models.Role]int64 `json:"users_by_role"`
	OpenDisputes       int64                 `json:"open_disputes"`
	PendingWithdrawals int64                 `json:"pending_withdrawals"`
	Settings           models.Settings       `json:"settings"`
}

type WalletSummaryView struct {
	Balance       models.Balance             `json:"balance"`
	Transactions  []models.WalletTransaction `json:"transactions"`
	Withdrawals   []models.WithdrawalRequest `json:"withdrawals"`
	MinWithdrawal int64                      `json:"min_withdrawal"`
}

// Presence reports which users currently hold a chat connection.
type Presence interface {
	IsUserOnline(userID uint) bool
}

// ViewService assembles the read side. Shared views are cached and marked
// stale by the workflows that change them.
type ViewService struct {
	base
	presence Presence
}

func NewViewService(db *gorm.DB, views *cache.ViewCache) *ViewService {
	return &ViewService{base: newBase(db, views)}
}

// WithPresence makes contract workspaces report who is online.
func (s *ViewService) WithPresence(p Presence) *ViewService {
	s.presence = p
	return s
}

func (s *ViewService) JobDetail(ctx context.Context, actor *policy.Actor, jobID uint) (*JobDetailView, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	var job models.Job
	err = s.views.Aside(ctx, "job", cache.JobViewKey(jobID), &job, func() error {
		j, err := st.Jobs.GetDetail(ctx, jobID)
		if err != nil {
			return err
		}
		job = *j
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadJob(actor, &job); err != nil {
		return nil, err
	}

	manage := actor.IsAdmin() || policy.IsOwner(job.EmployerID, actor.UserID)
	if job.Status == models.JobDraft && !manage {
		return nil, models.NewNotFoundError("Job", jobID)
	}

	all := job.Proposals
	job.Proposals = nil
	view := &JobDetailView{Job: &job, ProposalCount: len(all), CanEdit: manage}
	for _, p := range all {
		mine := p.FreelancerID == actor.UserID
		if mine && p.Status != models.ProposalWithdrawn && p.Status != models.ProposalDeclined {
			view.HasApplied = true
		}
		if manage || mine {
			view.Proposals = append(view.Proposals, p)
		}
	}
	return view, nil
}

// JobBoard lists open jobs.
func (s *ViewService) JobBoard(ctx context.Context, f JobBoardFilter) (*JobBoardView, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	if f.BudgetType != "" && !models.BudgetType(f.BudgetType).IsValid() {
		return nil, models.NewValidationError("Budget type must be fixed or hourly.")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize < 1:
		f.PageSize = 20
	case f.PageSize > 50:
		f.PageSize = 50
	}
	jobs, total, err := st.Jobs.List(ctx, repository.JobFilter{
		Status:     models.JobOpen,
		Category:   f.Category,
		Search:     f.Search,
		BudgetType: models.BudgetType(f.BudgetType),
	}, f.PageSize, (f.Page-1)*f.PageSize)
	if err != nil {
		return nil, err
	}
	return &JobBoardView{Jobs: jobs, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// ContractWorkspace is the contract page: terms, milestones and the recent
// conversation. Messages are always read live.
func (s *ViewService) ContractWorkspace(ctx context.Context, actor *policy.Actor, contractID uint) (*ContractWorkspaceView, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	var c models.Contract
	err = s.views.Aside(ctx, "contract", cache.ContractViewKey(contractID), &c, func() error {
		detail, err := st.Contracts.GetDetail(ctx, contractID)
		if err != nil {
			return err
		}
		c = *detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadContract(actor, &c); err != nil {
		return nil, err
	}

	msgs, err := st.Messages.ListRecent(ctx, contractID, HistoryLimit)
	if err != nil {
		return nil, err
	}

	role := string(models.RoleAdmin)
	switch actor.UserID {
	case c.EmployerID:
		role = string(models.RoleEmployer)
	case c.FreelancerID:
		role = string(models.RoleFreelancer)
	}
	online := map[uint]bool{c.EmployerID: false, c.FreelancerID: false}
	if s.presence != nil {
		for id := range online {
			online[id] = s.presence.IsUserOnline(id)
		}
	}
	return &ContractWorkspaceView{Contract: &c, Messages: msgs, ViewerRole: role, Online: online}, nil
}

func (s *ViewService) FreelancerDashboard(ctx context.Context, actor *policy.Actor) (*FreelancerDashboardView, error) {
	if err := policy.RequireRole(actor, models.RoleFreelancer); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	var view FreelancerDashboardView
	err = s.views.Aside(ctx, "freelancer_dashboard", cache.FreelancerDashboardKey(actor.UserID), &view, func() error {
		contracts, err := st.Contracts.ListForUser(ctx, actor.UserID, models.ContractActive)
		if err != nil {
			return err
		}
		counts, err := st.Proposals.CountByStatus(ctx, actor.UserID)
		if err != nil {
			return err
		}
		proposals, err := st.Proposals.ListByFreelancer(ctx, actor.UserID, "")
		if err != nil {
			return err
		}
		if len(proposals) > 10 {
			proposals = proposals[:10]
		}
		balance, err := st.Wallet.Balance(ctx, actor.UserID)
		if err != nil {
			return err
		}
		view = FreelancerDashboardView{
			ActiveContracts: contracts,
			Proposals:       counts,
			RecentProposals: proposals,
			Balance:         balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *ViewService) EmployerDashboard(ctx context.Context, actor *policy.Actor) (*EmployerDashboardView, error) {
	if err := policy.RequireRole(actor, models.RoleEmployer); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	var view EmployerDashboardView
	err = s.views.Aside(ctx, "employer_dashboard", cache.EmployerDashboardKey(actor.UserID), &view, func() error {
		jobs, err := st.Jobs.CountByStatus(ctx, actor.UserID)
		if err != nil {
			return err
		}
		contracts, err := st.Contracts.ListForUser(ctx, actor.UserID, models.ContractActive)
		if err != nil {
			return err
		}
		escrow, err := st.Contracts.SumEscrow(ctx, actor.UserID,
			[]models.ContractStatus{models.ContractActive, models.ContractDisputed})
		if err != nil {
			return err
		}
		view = EmployerDashboardView{Jobs: jobs, ActiveContracts: contracts, EscrowCommitted: escrow}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *ViewService) AdminOverview(ctx context.Context, actor *policy.Actor) (*AdminOverviewView, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	var view AdminOverviewView
	err = s.views.Aside(ctx, "admin_overview", cache.AdminOverviewKey(), &view, func() error {
		roles, err := st.Profiles.CountByRole(ctx)
		if err != nil {
			return err
		}
		disputes, err := st.Disputes.Count(ctx, models.DisputeOpen)
		if err != nil {
			return err
		}
		pending, err := st.Wallet.CountWithdrawals(ctx, models.WithdrawalPending)
		if err != nil {
			return err
		}
		settings, err := settingsOrDefault(ctx, st)
		if err != nil {
			return err
		}
		view = AdminOverviewView{
			UsersByRole:        roles,
			OpenDisputes:       disputes,
			PendingWithdrawals: pending,
			Settings:           settings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// WalletSummary derives the balance from the ledger and lists recent activity.
func (s *ViewService) WalletSummary(ctx context.Context, actor *policy.Actor) (*WalletSummaryView, error) {
	if err := policy.RequireAuth(actor); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	var view WalletSummaryView
	err = s.views.Aside(ctx, "wallet", cache.WalletViewKey(actor.UserID), &view, func() error {
		balance, err := st.Wallet.Balance(ctx, actor.UserID)
		if err != nil {
			return err
		}
		txs, err := st.Wallet.ListTransactions(ctx, actor.UserID, 50)
		if err != nil {
			return err
		}
		withdrawals, err := st.Wallet.ListWithdrawals(ctx, repository.WithdrawalFilter{FreelancerID: actor.UserID}, 20)
		if err != nil {
			return err
		}
		settings, err := settingsOrDefault(ctx, st)
		if err != nil {
			return err
		}
		view = WalletSummaryView{
			Balance:       balance,
			Transactions:  txs,
			Withdrawals:   withdrawals,
			MinWithdrawal: settings.MinWithdrawal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
