// Package repository implements the data access layer. Repositories hold no
// business rules; they bind parameters and map storage errors to AppErrors.
package repository

import (
	"errors"
	"strings"

	"gigboard/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// lookupError maps a single-row lookup failure.
func lookupError(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// writeError maps an insert/update failure; conflict is the message for
// unique violations.
func writeError(err error, conflict string) error {
	if isUniqueConstraintError(err) {
		return models.NewConflictError(conflict)
	}
	return models.NewInternalError(err)
}

// forUpdate adds a row lock. SQLite ignores the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Store bundles every repository over one handle, either the root pool or
// a transaction.
type Store struct {
	Users      UserRepository
	Profiles   ProfileRepository
	Jobs       JobRepository
	Proposals  ProposalRepository
	Contracts  ContractRepository
	Milestones MilestoneRepository
	Wallet     WalletRepository
	Disputes   DisputeRepository
	Messages   MessageRepository
	Settings   SettingsRepository
}

// New returns a Store over db.
func New(db *gorm.DB) *Store {
	return &Store{
		Users:      NewUserRepository(db),
		Profiles:   NewProfileRepository(db),
		Jobs:       NewJobRepository(db),
		Proposals:  NewProposalRepository(db),
		Contracts:  NewContractRepository(db),
		Milestones: NewMilestoneRepository(db),
		Wallet:     NewWalletRepository(db),
		Disputes:   NewDisputeRepository(db),
		Messages:   NewMessageRepository(db),
		Settings:   NewSettingsRepository(db),
	}
}
