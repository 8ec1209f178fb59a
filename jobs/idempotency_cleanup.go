package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/orderdesk/internal/jobs"
)

// DefaultIdempotencyRetention is how long a claimed key blocks replays.
const DefaultIdempotencyRetention = 24 * time.Hour

// IdempotencyCleaner deletes keys claimed before now minus olderThan.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob prunes the idempotency_keys table.
type IdempotencyCleanupJob struct {
	Store     IdempotencyCleaner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle executes the asynq task.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	if j.Store == nil {
		return tracker.End(fmt.Errorf("idempotency cleanup: store not configured: %w", asynq.SkipRetry))
	}
	retention := j.Retention
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	if err := j.Store.Cleanup(ctx, retention); err != nil {
		return tracker.End(fmt.Errorf("idempotency cleanup: %w", err))
	}
	if j.Logger != nil {
		j.Logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
	}
	return tracker.End(nil)
}
