package database

import "gigboard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Job{},
		&models.Proposal{},
		&models.Contract{},
		&models.Milestone{},
		&models.WalletTransaction{},
		&models.WithdrawalRequest{},
		&models.Dispute{},
		&models.Message{},
		&models.Settings{},
	}
}
