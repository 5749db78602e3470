package database

import (
	"context"
	"testing"

	"gigboard/internal/config"
	"gigboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestPersistentModels_CoversMarketplace(t *testing.T) {
	var sawLedger, sawSettings bool
	for _, m := range PersistentModels() {
		switch m.(type) {
		case *models.WalletTransaction:
			sawLedger = true
		case *models.Settings:
			sawSettings = true
		}
	}
	assert.True(t, sawLedger)
	assert.True(t, sawSettings)
}

func TestApplySchema_IsIdempotent(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, ApplySchema(ctx, db))
	require.NoError(t, ApplySchema(ctx, db))

	status, err := GetSchemaStatus(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, status.Pending)
	assert.Len(t, status.Applied, len(Migrations()))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestRollbackMigration(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, ApplySchema(ctx, db))

	require.NoError(t, RollbackMigration(ctx, db, 1))
	status, err := GetSchemaStatus(ctx, db)
	require.NoError(t, err)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, 1, status.Pending[0].Version)

	assert.Error(t, RollbackMigration(ctx, db, 1), "already rolled back")
	assert.Error(t, RollbackMigration(ctx, db, 999), "unknown version")
}

func TestTruncateMarketplace(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, ApplySchema(ctx, db))

	user := &models.User{Email: "a@example.com", AuthProvider: models.ProviderPassword}
	require.NoError(t, db.Omit("Profile").Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{ID: user.ID, Role: models.RoleEmployer}).Error)

	require.NoError(t, TruncateMarketplace(ctx, db))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Unscoped().Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Profile{}).Count(&n).Error)
	assert.Zero(t, n)
}
