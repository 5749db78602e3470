package bootstrap

import (
	"context"
	"testing"

	"gigboard/internal/config"
	"gigboard/internal/models"
	"gigboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:               "development",
		DevBootstrapAdmin: true,
		DevAdminEmail:     "Root@GigBoard.local",
		DevAdminPassword:  "AdminPass123",
	}
}

func TestEnsureDevAdmin_CreatesOnce(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, ensureDevAdmin(ctx, devConfig(), db))
	require.NoError(t, ensureDevAdmin(ctx, devConfig(), db))

	var user models.User
	require.NoError(t, db.Preload("Profile").Where("email = ?", "root@gigboard.local").First(&user).Error)
	assert.Equal(t, models.RoleAdmin, user.Profile.Role)
	assert.True(t, user.Profile.IsOnboarded)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("AdminPass123")))
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.User{}))
}

func TestEnsureDevAdmin_PromotesExisting(t *testing.T) {
	db := testutil.NewDB(t)
	existing := testutil.CreateUser(t, db, models.RoleFreelancer)

	cfg := devConfig()
	cfg.DevAdminEmail = existing.Email
	require.NoError(t, ensureDevAdmin(context.Background(), cfg, db))

	var p models.Profile
	require.NoError(t, db.First(&p, existing.ID).Error)
	assert.Equal(t, models.RoleAdmin, p.Role)
}

func TestEnsureDevAdmin_Guards(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	prod := devConfig()
	prod.Env = "production"
	require.NoError(t, ensureDevAdmin(ctx, prod, db))
	assert.Zero(t, testutil.Count(t, db, &models.User{}))

	weak := devConfig()
	weak.DevAdminPassword = "short"
	assert.Error(t, ensureDevAdmin(ctx, weak, db))

	missing := devConfig()
	missing.DevAdminPassword = ""
	assert.Error(t, ensureDevAdmin(ctx, missing, db))
}
