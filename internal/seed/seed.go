package seed

import (
	"context"
	"fmt"
	"log/slog"

	"gigboard/internal/database"
	"gigboard/internal/middleware"
	"gigboard/internal/models"

	"gorm.io/gorm"
)

// Summary counts what a run created.
type Summary struct {
	Employers   int
	Freelancers int
	Jobs        int
	Proposals   int
	Contracts   int
	Milestones  int
	Messages    int
}

// DefaultOptions is a small but complete marketplace.
func DefaultOptions() Options {
	return Options{
		Employers:       5,
		Freelancers:     15,
		JobsPerEmployer: 4,
		ProposalsPerJob: 3,
		MaxDays:         60,
	}
}

// Seed populates db with employers, freelancers, jobs, proposals and a few
// hired contracts with milestones and chat history.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.Employers <= 0 || opts.Freelancers <= 0 {
		return nil, fmt.Errorf("seed needs at least one employer and one freelancer")
	}
	middleware.Logger.InfoContext(ctx, "seeding marketplace",
		slog.Int("employers", opts.Employers),
		slog.Int("freelancers", opts.Freelancers),
	)

	if opts.Clean && !opts.DryRun {
		if err := database.TruncateMarketplace(ctx, db); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	f := NewFactory(db, opts)
	sum := &Summary{}

	employers := make([]*models.User, 0, opts.Employers)
	for range opts.Employers {
		u, err := f.CreateUser(models.RoleEmployer)
		if err != nil {
			return nil, err
		}
		employers = append(employers, u)
	}
	sum.Employers = len(employers)

	freelancers := make([]*models.User, 0, opts.Freelancers)
	for range opts.Freelancers {
		u, err := f.CreateUser(models.RoleFreelancer)
		if err != nil {
			return nil, err
		}
		freelancers = append(freelancers, u)
	}
	sum.Freelancers = len(freelancers)

	settings := models.DefaultSettings()
	for _, employer := range employers {
		for j := range opts.JobsPerEmployer {
			job, err := f.CreateJob(employer)
			if err != nil {
				return nil, err
			}
			sum.Jobs++

			// Each freelancer bids once per job.
			n := min(opts.ProposalsPerJob, len(freelancers))
			picked := f.rng.Perm(len(freelancers))[:n]
			var proposals []*models.Proposal
			for i, idx := range picked {
				status := models.ProposalSubmitted
				if i == 0 && n > 1 {
					status = models.ProposalShortlisted
				}
				p, err := f.CreateProposal(job, freelancers[idx], status)
				if err != nil {
					return nil, err
				}
				proposals = append(proposals, p)
				sum.Proposals++
			}

			// The first job of every employer gets hired.
			if j != 0 || len(proposals) == 0 {
				continue
			}
			contract, err := f.CreateContract(job, proposals[0])
			if err != nil {
				return nil, err
			}
			sum.Contracts++

			if _, err := f.CreateApprovedMilestone(contract, contract.EscrowAmount/2, settings); err != nil {
				return nil, err
			}
			sum.Milestones++

			messages, err := f.CreateMessages(contract, 4+f.rng.Intn(6))
			if err != nil {
				return nil, err
			}
			sum.Messages += len(messages)
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("jobs", sum.Jobs),
		slog.Int("proposals", sum.Proposals),
		slog.Int("contracts", sum.Contracts),
	)
	return sum, nil
}
