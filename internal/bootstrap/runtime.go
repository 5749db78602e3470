// Package bootstrap wires the process-level dependencies shared by the
// server and the maintenance commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gigboard/internal/cache"
	"gigboard/internal/config"
	"gigboard/internal/database"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipRedis leaves the redis client nil, for tools that never need it.
	SkipRedis bool
}

// InitRuntime connects to the database and Redis. A Redis outage is not
// fatal: the returned client is nil and the caller runs without it.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	var r *redis.Client
	if !opts.SkipRedis {
		cache.InitRedis(cfg.RedisURL)
		r = cache.GetClient()
	}

	if err := ensureDevAdmin(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}
	return db, r, nil
}

// ensureDevAdmin creates, or promotes, the configured admin account in
// development so a fresh database has someone who can reach /admin.
func ensureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if cfg.Env != "development" || !cfg.DevBootstrapAdmin {
		return nil
	}

	email := models.NormalizeEmail(cfg.DevAdminEmail)
	if email == "" {
		email = "admin@gigboard.local"
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}
	if err := validation.ValidatePassword(cfg.DevAdminPassword); err != nil {
		return fmt.Errorf("DEV_ADMIN_PASSWORD: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:        email,
				PasswordHash: string(hash),
				AuthProvider: models.ProviderPassword,
			}
			if err := tx.Omit("Profile").Create(&user).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.Profile{
				ID:          user.ID,
				Role:        models.RoleAdmin,
				FullName:    "GigBoard Admin",
				IsOnboarded: true,
			}).Error; err != nil {
				return err
			}
			middleware.Logger.Info("development admin created", slog.String("email", email))
		case err != nil:
			return err
		default:
			if err := tx.Model(&models.Profile{}).Where("id = ?", user.ID).Updates(map[string]any{
				"role":         models.RoleAdmin,
				"is_onboarded": true,
				"is_suspended": false,
			}).Error; err != nil {
				return err
			}
			middleware.Logger.Info("development admin ensured", slog.String("email", email))
		}
		return nil
	})
}
