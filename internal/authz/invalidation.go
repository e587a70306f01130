package authz

import (
	"context"
	"log/slog"
)

// WarmupEnqueuer schedules background re-population of permission caches
// after an invalidation. Enqueueing is best effort.
type WarmupEnqueuer interface {
	EnqueuePermissionsWarmup(ctx context.Context) error
}

// Invalidator closes the correctness loop: every write path that can change
// a resolved permission set calls Invalidate exactly once per logical
// mutation, synchronously, before the mutation reports success.
//
// Invalidation is deliberately coarse: one bump discards the cached view of
// every user rather than tracking which users hold the changed role. The
// alternative needs a role-to-users reverse index and still misses edge
// changes that fan out through many roles; the coarse bump costs only a
// post-mutation hit-rate dip.
type Invalidator struct {
	cache  *VersionedCache
	warmup WarmupEnqueuer
	logger *slog.Logger
}

// NewInvalidator constructs an Invalidator. warmup may be nil.
func NewInvalidator(cache *VersionedCache, warmup WarmupEnqueuer, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: cache, warmup: warmup, logger: logger}
}

// Invalidate bumps the epoch. Callers must not invoke it for mutations that
// failed validation; a rejected mutation never invalidates.
func (i *Invalidator) Invalidate(ctx context.Context) error {
	epoch, err := i.cache.Bump(ctx)
	if err != nil {
		return err
	}
	if i.logger != nil {
		i.logger.Info("permission caches invalidated", slog.Int64("epoch", epoch))
	}
	if i.warmup != nil {
		if err := i.warmup.EnqueuePermissionsWarmup(ctx); err != nil && i.logger != nil {
			i.logger.Warn("enqueue permissions warmup", slog.Any("error", err))
		}
	}
	return nil
}
