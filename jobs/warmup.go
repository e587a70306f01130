package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/scholaris/scholaris/internal/authz"
	jobmetrics "github.com/scholaris/scholaris/internal/jobs"
)

const warmupConcurrency = 8

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PermissionsWarmupJob resolves every user with an active role assignment so
// the first request after an epoch bump hits a warm cache instead of paying
// the resolution round trip.
type PermissionsWarmupJob struct {
	Resolver *authz.Resolver
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewPermissionsWarmupJob wires dependencies for the warmup handler.
func NewPermissionsWarmupJob(resolver *authz.Resolver, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *PermissionsWarmupJob {
	return &PermissionsWarmupJob{
		Resolver: resolver,
		Pool:     pool,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes permission warmup tasks. Warmup is best effort: a single
// user failing to resolve aborts the run and relies on lazy resolution for
// the rest. The result is named so the deferred tracker records the outcome
// of whichever return path fires.
func (j *PermissionsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Resolver == nil {
		return errors.New("permissions warmup: handler not configured")
	}
	var payload PermissionsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPermissionsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	if !payload.RequestedAt.IsZero() {
		logger.Info("starting permissions warmup", slog.Duration("queue_lag", start.Sub(payload.RequestedAt)))
	} else {
		logger.Info("starting permissions warmup")
	}

	userIDs, err := j.fetchUserIDs(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load warmup users", slog.Any("error", err))
		return resultErr
	}
	if len(userIDs) == 0 {
		logger.Info("no users with active roles to warm")
		return resultErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			if _, err := j.Resolver.Resolve(gctx, userID); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		logger.Error("warm permissions", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed permissions warmup",
		slog.Int("users", len(userIDs)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *PermissionsWarmupJob) fetchUserIDs(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("permissions warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT user_id FROM user_roles WHERE is_active = TRUE ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

func (j *PermissionsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PermissionsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPermissionsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskPermissionsWarmup))
}

func (j *PermissionsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
