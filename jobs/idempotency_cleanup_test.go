package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/orderdesk/internal/jobs"
)

type fakeCleaner struct {
	calls []time.Duration
	err   error
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.calls = append(f.calls, olderThan)
	return f.err
}

func TestIdempotencyCleanupUsesRetention(t *testing.T) {
	store := &fakeCleaner{}
	job := &IdempotencyCleanupJob{Store: store, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	job.Retention = time.Hour
	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))

	assert.Equal(t, []time.Duration{DefaultIdempotencyRetention, time.Hour}, store.calls)
}

func TestIdempotencyCleanupErrors(t *testing.T) {
	job := &IdempotencyCleanupJob{Store: &fakeCleaner{err: errors.New("db down")}}
	err := job.Handle(context.Background(), NewIdempotencyCleanupTask())
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	job = &IdempotencyCleanupJob{}
	err = job.Handle(context.Background(), NewIdempotencyCleanupTask())
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
