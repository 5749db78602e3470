// Package seed provides helpers to create demo marketplace data. These
// helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"gigboard/internal/middleware"
	"gigboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "GigBoard2024"

// Options configures the seeder.
type Options struct {
	Employers       int
	Freelancers     int
	JobsPerEmployer int
	ProposalsPerJob int
	// SkipBcrypt stores a plain marker instead of a hash; seeded users then
	// cannot sign in. Useful for fast test data.
	SkipBcrypt bool
	// DryRun builds entities without writing them.
	DryRun  bool
	MaxDays int
	Clean   bool
}

var categories = []string{"web", "mobile", "design", "writing", "data", "marketing", "devops"}

var skillsByCategory = map[string][]string{
	"web":       {"Go", "React", "TypeScript", "PostgreSQL", "HTML", "CSS"},
	"mobile":    {"Swift", "Kotlin", "Flutter", "React Native"},
	"design":    {"Figma", "Illustrator", "Branding", "UI", "UX"},
	"writing":   {"Copywriting", "SEO", "Technical Writing", "Editing"},
	"data":      {"Python", "SQL", "Pandas", "Tableau", "Machine Learning"},
	"marketing": {"Google Ads", "SEO", "Email", "Analytics"},
	"devops":    {"Kubernetes", "Terraform", "AWS", "Docker", "CI/CD"},
}

// Factory builds marketplace entities and persists them.
type Factory struct {
	db     *gorm.DB
	opts   Options
	rng    *rand.Rand
	hash   string
	nextID uint
}

// NewFactory creates a Factory bound to db. db may be nil in dry-run mode.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	//nolint:gosec // weak randomness is fine for demo data
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	gofakeit.Seed(rng.Int63())

	hash := "seed-no-login"
	if !opts.SkipBcrypt {
		h, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err == nil {
			hash = string(h)
		}
	}
	return &Factory{db: db, opts: opts, rng: rng, hash: hash, nextID: 1000}
}

func (f *Factory) create(value interface{}, omit ...string) error {
	if f.opts.DryRun {
		return nil
	}
	q := f.db
	if len(omit) > 0 {
		q = q.Omit(omit...)
	}
	return q.Create(value).Error
}

func (f *Factory) syntheticID() uint {
	f.nextID++
	return f.nextID
}

// pastTime returns a random moment within the configured window.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 60
	}
	back := time.Duration(f.rng.Intn(maxDays*24*60)) * time.Minute
	return time.Now().UTC().Add(-back)
}

func (f *Factory) pickSkills(category string, n int) []string {
	pool := skillsByCategory[category]
	perm := f.rng.Perm(len(pool))
	n = min(n, len(pool))
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, pool[i])
	}
	return out
}

// CreateUser persists an onboarded user and profile with role.
func (f *Factory) CreateUser(role models.Role, overrides ...func(*models.User)) (*models.User, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	category := categories[f.rng.Intn(len(categories))]

	user := &models.User{
		Email:        models.NormalizeEmail(fmt.Sprintf("%s.%s.%d@example.com", first, last, gofakeit.Number(100, 9999))),
		PasswordHash: f.hash,
		AuthProvider: models.ProviderPassword,
		CreatedAt:    f.pastTime(),
	}
	profile := &models.Profile{
		Role:        role,
		FullName:    first + " " + last,
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		IsOnboarded: true,
	}
	switch role {
	case models.RoleFreelancer:
		profile.Headline = gofakeit.JobTitle()
		profile.Bio = gofakeit.Paragraph(1, 3, 12, " ")
		profile.Skills = f.pickSkills(category, 3)
		profile.HourlyRate = int64(gofakeit.Number(15, 150))
	case models.RoleEmployer:
		profile.Headline = gofakeit.Company()
		profile.Bio = gofakeit.Sentence(14)
	}
	user.Profile = profile

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = f.syntheticID()
		profile.ID = user.ID
		return user, nil
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			return err
		}
		profile.ID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// BuildJob constructs an open job without persisting it.
func (f *Factory) BuildJob(employer *models.User, overrides ...func(*models.Job)) *models.Job {
	category := categories[f.rng.Intn(len(categories))]
	budgetType := models.BudgetFixed
	lo, hi := int64(gofakeit.Number(100, 2000)), int64(0)
	if f.rng.Intn(3) == 0 {
		budgetType = models.BudgetHourly
		lo = int64(gofakeit.Number(15, 60))
	}
	hi = lo + int64(gofakeit.Number(0, int(lo)))

	job := &models.Job{
		EmployerID:  employer.ID,
		Title:       fmt.Sprintf("%s %s for %s", gofakeit.HackerVerb(), gofakeit.HackerNoun(), gofakeit.Company()),
		Description: gofakeit.Paragraph(2, 4, 14, "\n\n"),
		Category:    category,
		BudgetType:  budgetType,
		BudgetMin:   lo,
		BudgetMax:   hi,
		Skills:      f.pickSkills(category, 2+f.rng.Intn(3)),
		Status:      models.JobOpen,
		CreatedAt:   f.pastTime(),
	}
	for _, override := range overrides {
		override(job)
	}
	return job
}

// CreateJob persists a job built by BuildJob.
func (f *Factory) CreateJob(employer *models.User, overrides ...func(*models.Job)) (*models.Job, error) {
	job := f.BuildJob(employer, overrides...)
	if f.opts.DryRun {
		job.ID = f.syntheticID()
		return job, nil
	}
	if err := f.create(job, "Employer", "Proposals"); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// CreateProposal persists a bid by freelancer on job.
func (f *Factory) CreateProposal(job *models.Job, freelancer *models.User, status models.ProposalStatus) (*models.Proposal, error) {
	bid := job.BudgetMin
	if job.BudgetMax > job.BudgetMin {
		bid += int64(f.rng.Intn(int(job.BudgetMax-job.BudgetMin) + 1))
	}
	p := &models.Proposal{
		JobID:         job.ID,
		FreelancerID:  freelancer.ID,
		CoverLetter:   gofakeit.Paragraph(1, 3, 16, " "),
		BidAmount:     max(bid, 1),
		BidType:       job.BudgetType,
		EstimatedDays: gofakeit.Number(2, 45),
		Status:        status,
		CreatedAt:     f.pastTime(),
	}
	if f.opts.DryRun {
		p.ID = f.syntheticID()
		return p, nil
	}
	if err := f.create(p, "Job", "Freelancer"); err != nil {
		return nil, fmt.Errorf("create proposal: %w", err)
	}
	return p, nil
}

// CreateContract hires p on job: the contract, the hired proposal and the
// in-progress job are written together.
func (f *Factory) CreateContract(job *models.Job, p *models.Proposal) (*models.Contract, error) {
	c := &models.Contract{
		ProposalID:   p.ID,
		JobID:        job.ID,
		EmployerID:   job.EmployerID,
		FreelancerID: p.FreelancerID,
		Status:       models.ContractActive,
		EscrowAmount: p.BidAmount,
		StartedAt:    f.pastTime(),
	}
	if f.opts.DryRun {
		c.ID = f.syntheticID()
		return c, nil
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Job", "Employer", "Freelancer", "Milestones").Create(c).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Proposal{}).Where("id = ?", p.ID).Update("status", models.ProposalHired).Error; err != nil {
			return err
		}
		return tx.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobInProgress).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	p.Status = models.ProposalHired
	job.Status = models.JobInProgress
	return c, nil
}

// CreateApprovedMilestone adds a reviewed milestone and its ledger release.
func (f *Factory) CreateApprovedMilestone(c *models.Contract, amount int64, settings models.Settings) (*models.Milestone, error) {
	reviewed := f.pastTime()
	m := &models.Milestone{
		ContractID:  c.ID,
		Title:       "Milestone: " + gofakeit.HackerPhrase(),
		Description: gofakeit.Sentence(12),
		Amount:      amount,
		Status:      models.MilestoneApproved,
		Deliverable: gofakeit.URL(),
		SubmittedAt: &reviewed,
		ReviewedAt:  &reviewed,
	}
	if f.opts.DryRun {
		m.ID = f.syntheticID()
		return m, nil
	}
	fee := settings.Fee(amount)
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		mid := m.ID
		return tx.Create(&models.WalletTransaction{
			UserID:      c.FreelancerID,
			Type:        models.TransactionRelease,
			Amount:      amount - fee,
			Fee:         fee,
			Status:      models.TransactionCompleted,
			MilestoneID: &mid,
			Description: "Milestone approved: " + m.Title,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create milestone: %w", err)
	}
	return m, nil
}

// CreateMessages adds a short conversation between the contract parties.
func (f *Factory) CreateMessages(c *models.Contract, n int) ([]models.Message, error) {
	messages := make([]models.Message, 0, n)
	at := c.StartedAt
	for i := range n {
		sender := c.EmployerID
		if i%2 == 1 {
			sender = c.FreelancerID
		}
		at = at.Add(time.Duration(5+f.rng.Intn(240)) * time.Minute)
		messages = append(messages, models.Message{
			ContractID: c.ID,
			SenderID:   sender,
			Content:    gofakeit.Sentence(4 + f.rng.Intn(12)),
			CreatedAt:  at,
		})
	}
	if f.opts.DryRun || len(messages) == 0 {
		return messages, nil
	}
	if err := f.db.Omit("Sender").Create(&messages).Error; err != nil {
		return nil, fmt.Errorf("create messages: %w", err)
	}
	middleware.Logger.Debug("seeded messages", slog.Uint64("contract_id", uint64(c.ID)), slog.Int("count", n))
	return messages, nil
}
