package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gigboard/internal/middleware"
	"gigboard/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ViewTTL bounds how stale a cached read view can get if an invalidation is lost.
const ViewTTL = 2 * time.Minute

const (
	jobViewKey             = "view:job:%d"
	contractViewKey        = "view:contract:%d"
	freelancerDashboardKey = "view:dashboard:freelancer:%d"
	employerDashboardKey   = "view:dashboard:employer:%d"
	walletViewKey          = "view:wallet:%d"
	adminOverviewKey       = "view:admin:overview"
)

func JobViewKey(jobID uint) string           { return fmt.Sprintf(jobViewKey, jobID) }
func ContractViewKey(contractID uint) string { return fmt.Sprintf(contractViewKey, contractID) }
func FreelancerDashboardKey(userID uint) string {
	return fmt.Sprintf(freelancerDashboardKey, userID)
}
func EmployerDashboardKey(userID uint) string { return fmt.Sprintf(employerDashboardKey, userID) }
func WalletViewKey(userID uint) string        { return fmt.Sprintf(walletViewKey, userID) }
func AdminOverviewKey() string                { return adminOverviewKey }

// ViewCache stores assembled read views. A nil client disables caching, so
// every lookup falls through to the loader.
type ViewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewViewCache returns a cache over rdb, which may be nil.
func NewViewCache(rdb *redis.Client) *ViewCache {
	return &ViewCache{rdb: rdb, ttl: ViewTTL}
}

// Aside loads key into dest, calling fetch on a miss and storing its result.
// Redis failures are logged and treated as misses.
func (v *ViewCache) Aside(ctx context.Context, view, key string, dest any, fetch func() error) error {
	if v == nil || v.rdb == nil {
		return fetch()
	}

	raw, err := v.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.ViewCacheResults.WithLabelValues(view, "hit").Inc()
			return nil
		}
	case !errors.Is(err, redis.Nil):
		observability.ViewCacheResults.WithLabelValues(view, "error").Inc()
		middleware.Logger.WarnContext(ctx, "view cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	observability.ViewCacheResults.WithLabelValues(view, "miss").Inc()
	if err := fetch(); err != nil {
		return err
	}

	b, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := v.rdb.Set(ctx, key, b, v.ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "view cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate marks the given views stale by deleting them.
func (v *ViewCache) Invalidate(ctx context.Context, keys ...string) {
	if v == nil || v.rdb == nil || len(keys) == 0 {
		return
	}
	if err := v.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "view cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}
