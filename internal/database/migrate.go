package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gigboard/internal/middleware"

	"gorm.io/gorm"
)

// Migration is a versioned SQL step applied after AutoMigrate. Steps must be
// portable between PostgreSQL and SQLite.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "jobs_status_created_at",
		Up:      "CREATE INDEX IF NOT EXISTS idx_jobs_status_created_at ON jobs (status, created_at DESC)",
		Down:    "DROP INDEX IF EXISTS idx_jobs_status_created_at",
	},
	{
		Version: 2,
		Name:    "wallet_transactions_user_type_status",
		Up:      "CREATE INDEX IF NOT EXISTS idx_wallet_tx_user_type_status ON wallet_transactions (user_id, type, status)",
		Down:    "DROP INDEX IF EXISTS idx_wallet_tx_user_type_status",
	},
	{
		Version: 3,
		Name:    "withdrawal_requests_status_created_at",
		Up:      "CREATE INDEX IF NOT EXISTS idx_withdrawals_status_created_at ON withdrawal_requests (status, created_at)",
		Down:    "DROP INDEX IF EXISTS idx_withdrawals_status_created_at",
	},
	{
		Version: 4,
		Name:    "contracts_participants",
		Up:      "CREATE INDEX IF NOT EXISTS idx_contracts_participants ON contracts (employer_id, freelancer_id, status)",
		Down:    "DROP INDEX IF EXISTS idx_contracts_participants",
	},
}

// Migrations returns the registered SQL steps in version order.
func Migrations() []Migration {
	return migrations
}

// MigrationLog records an applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// SchemaStatus summarizes applied and pending steps.
type SchemaStatus struct {
	Applied []int
	Pending []Migration
}

// ApplySchema runs AutoMigrate for every persistent model and then applies
// pending SQL steps.
func ApplySchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return RunMigrations(ctx, db)
}

// RunMigrations applies each registered step that is not yet logged.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("failed to ensure migration logs table: %w", err)
	}

	status, err := GetSchemaStatus(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range status.Pending {
		middleware.Logger.Info("Applying migration", slog.Int("version", m.Version), slog.String("name", m.Name))
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.Up).Error; err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m, err)
			}
			return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GetSchemaStatus compares the migration log with the registered steps.
func GetSchemaStatus(ctx context.Context, db *gorm.DB) (*SchemaStatus, error) {
	var applied []int
	if db.Migrator().HasTable(&MigrationLog{}) {
		if err := db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &applied).Error; err != nil {
			return nil, fmt.Errorf("failed to get applied migrations: %w", err)
		}
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	status := &SchemaStatus{Applied: applied}
	for _, m := range migrations {
		if !done[m.Version] {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

// RollbackMigration reverts a specific applied step.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	var target *Migration
	for i := range migrations {
		if migrations[i].Version == version {
			target = &migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("version = ?", version).Delete(&MigrationLog{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", version, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("migration %d has not been applied", version)
		}
		if err := tx.Exec(target.Down).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %s: %w", target, err)
		}
		middleware.Logger.Info("Migration rolled back", slog.Int("version", version))
		return nil
	})
}
