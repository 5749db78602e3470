// Command main fills a development database with a demo marketplace.
package main

import (
	"context"
	"flag"
	"log"

	"gigboard/internal/config"
	"gigboard/internal/database"
	"gigboard/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	employers := flag.Int("employers", defaults.Employers, "Number of employer accounts")
	freelancers := flag.Int("freelancers", defaults.Freelancers, "Number of freelancer accounts")
	jobs := flag.Int("jobs", defaults.JobsPerEmployer, "Jobs per employer")
	proposals := flag.Int("proposals", defaults.ProposalsPerJob, "Proposals per job")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread timestamps over this many past days")
	clean := flag.Bool("clean", true, "Truncate marketplace tables before seeding")
	fast := flag.Bool("fast", false, "Store a placeholder hash instead of bcrypting the demo password")
	dryRun := flag.Bool("dry-run", false, "Build records without writing them")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sum, err := seed.Seed(context.Background(), db, seed.Options{
		Employers:       *employers,
		Freelancers:     *freelancers,
		JobsPerEmployer: *jobs,
		ProposalsPerJob: *proposals,
		MaxDays:         *maxDays,
		Clean:           *clean,
		SkipBcrypt:      *fast,
		DryRun:          *dryRun,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d employers, %d freelancers, %d jobs, %d proposals, %d contracts, %d milestones, %d messages",
		sum.Employers, sum.Freelancers, sum.Jobs, sum.Proposals, sum.Contracts, sum.Milestones, sum.Messages)
	if !*fast {
		log.Printf("Demo accounts share the password %q", seed.DemoPassword)
	}
}
