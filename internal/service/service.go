// Package service implements the marketplace workflows and read views. Every
// mutation validates its input, checks the acting user against the policy
// rules, writes (inside a transaction when more than one row changes) and
// then marks the affected read views stale.
package service

import (
	"context"
	"errors"
	"log/slog"

	"gigboard/internal/cache"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/observability"
	"gigboard/internal/repository"
	"gigboard/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// base carries the handles shared by every service.
type base struct {
	db    *gorm.DB
	views *cache.ViewCache
}

func newBase(db *gorm.DB, views *cache.ViewCache) base {
	return base{db: db, views: views}
}

// store returns repositories over the root handle.
func (b base) store() (*repository.Store, error) {
	if b.db == nil {
		return nil, models.NewUnavailableError()
	}
	return repository.New(b.db), nil
}

// inTx runs fn with repositories bound to one transaction. Any error rolls
// every write back.
func (b base) inTx(ctx context.Context, fn func(*repository.Store) error) error {
	if b.db == nil {
		return models.NewUnavailableError()
	}
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.New(tx))
	})
	if err != nil {
		return models.AsAppError(err)
	}
	return nil
}

func (b base) invalidate(ctx context.Context, keys ...string) {
	b.views.Invalidate(ctx, keys...)
}

// settings returns the stored platform settings or the defaults.
func settingsOrDefault(ctx context.Context, st *repository.Store) (models.Settings, error) {
	s, err := st.Settings.Get(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if s == nil {
		return models.DefaultSettings(), nil
	}
	return *s, nil
}

// validate reports the first violation in `in` as a VALIDATION_ERROR.
func validate(in interface{}) error {
	if err := validation.Struct(in); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// track wraps a workflow in a span and records its outcome. Internal
// failures are logged with their cause; callers only ever see the generic
// message.
func track(ctx context.Context, workflow string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	span, ctx := observability.NewSpan(ctx, "workflow."+workflow, attrs...)
	err := fn(ctx)

	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeRejected
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code == models.CodeInternal || appErr.Code == models.CodeUnavailable {
			outcome = observability.OutcomeFailed
			middleware.Logger.ErrorContext(ctx, "workflow failed",
				slog.String("workflow", workflow),
				slog.String("trace_id", span.TraceID()),
				slog.String("error", err.Error()),
			)
		}
	}
	span.AddAttributes(attribute.String("workflow.outcome", outcome))
	span.End(err)
	observability.WorkflowTotal.WithLabelValues(workflow, outcome).Inc()
	return err
}
