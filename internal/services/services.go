package services

import (
	"context"
	"errors"
	"strconv"

	"betting-pool/internal/cache"
	"betting-pool/internal/events"
	"betting-pool/internal/metrics"
	"betting-pool/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor is the resolved identity behind a call, as supplied by the auth layer.
type Actor struct {
	UserID  string
	IsAdmin bool
}

func (a Actor) requireAdmin() error {
	if a.UserID == "" {
		return ErrUnauthorized
	}
	if !a.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// Deps are the collaborators shared by the betting services. Only Repo is
// required; the rest fall back to no-op implementations.
type Deps struct {
	Repo      *repository.Repository
	Logger    *zap.Logger
	Cache     cache.PoolStatsCache
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	return d
}

// afterCommit runs the side effects of a committed change. Failures here
// are logged and never undo the change.
func (d Deps) afterCommit(ctx context.Context, betID uint, evs ...events.Event) {
	ctx = context.WithoutCancel(ctx)
	if betID != 0 {
		if err := d.Cache.Invalidate(ctx, betID); err != nil {
			d.Logger.Warn("failed to invalidate pool stats", zap.Uint("bet_id", betID), zap.Error(err))
		}
	}
	if len(evs) == 0 {
		return
	}
	if err := d.Publisher.Publish(ctx, evs...); err != nil {
		d.Logger.Warn("failed to publish events", zap.Int("count", len(evs)), zap.Error(err))
	}
}

// event builds an event, logging instead of failing when the payload cannot
// be encoded.
func (d Deps) event(eventType, key string, payload any) []events.Event {
	e, err := events.New(eventType, key, payload)
	if err != nil {
		d.Logger.Error("failed to build event", zap.String("type", eventType), zap.Error(err))
		return nil
	}
	return []events.Event{e}
}

func notFound(err error, sentinel *Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// resultLabel names the outcome of an operation for metrics.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func betKey(betID uint) string {
	return "bet:" + strconv.FormatUint(uint64(betID), 10)
}
