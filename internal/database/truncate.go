package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// tableNames resolves the table of every persistent model, in registry order.
func tableNames(db *gorm.DB) ([]string, error) {
	names := make([]string, 0, len(PersistentModels()))
	for _, m := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", m, err)
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}

// TruncateMarketplace empties every marketplace table. It exists for the
// seed tool and local resets, never for production data.
func TruncateMarketplace(ctx context.Context, db *gorm.DB) error {
	names, err := tableNames(db)
	if err != nil {
		return err
	}
	db = db.WithContext(ctx)

	if db.Dialector.Name() == "postgres" {
		return db.Exec("TRUNCATE TABLE " + strings.Join(names, ", ") + " RESTART IDENTITY CASCADE").Error
	}

	// Children before parents.
	return db.Transaction(func(tx *gorm.DB) error {
		for i := len(names) - 1; i >= 0; i-- {
			if err := tx.Exec("DELETE FROM " + names[i]).Error; err != nil {
				return fmt.Errorf("clear %s: %w", names[i], err)
			}
		}
		return nil
	})
}
