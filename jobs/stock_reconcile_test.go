package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/orderdesk/internal/jobs"
	"github.com/odyssey-erp/orderdesk/internal/stockledger"
)

type fakeSource struct {
	ops       map[string][]stockledger.Operation
	snapshots map[string]stockledger.Snapshot
	failOn    string
}

func (f *fakeSource) Operations(_ context.Context, productID string) ([]stockledger.Operation, error) {
	if productID == f.failOn {
		return nil, errors.New("connection reset")
	}
	return f.ops[productID], nil
}

func (f *fakeSource) Snapshot(_ context.Context, productID string) (stockledger.Snapshot, error) {
	snap, ok := f.snapshots[productID]
	if !ok {
		return stockledger.Snapshot{}, stockledger.ErrProductNotFound
	}
	return snap, nil
}

func (f *fakeSource) Products(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.snapshots))
	for id := range f.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []stockledger.DriftEvent
}

func (c *capturePublisher) PublishDrift(_ context.Context, evt stockledger.DriftEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func newSource() *fakeSource {
	return &fakeSource{
		ops: map[string][]stockledger.Operation{
			"SKU-A": {
				{ProductID: "SKU-A", Kind: stockledger.OperationCreate, Quantity: 5},
				{ProductID: "SKU-A", Kind: stockledger.OperationDelete, Quantity: 2},
			},
			"SKU-B": {
				{ProductID: "SKU-B", Kind: stockledger.OperationEdit, Quantity: 4},
			},
		},
		snapshots: map[string]stockledger.Snapshot{
			"SKU-A": {ProductID: "SKU-A", Reported: 97, InitialStock: 100},
			"SKU-B": {ProductID: "SKU-B", Reported: 10, InitialStock: 10},
		},
	}
}

func newTestJob(src stockledger.Source, pub stockledger.DriftPublisher) *StockReconcileJob {
	job := NewStockReconcileJob(src, pub, slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.Concurrency = 2
	return job
}

func TestStockReconcileFindsDrift(t *testing.T) {
	pub := &capturePublisher{}
	job := newTestJob(newSource(), pub)

	summary, err := job.Reconcile(context.Background(), []string{"SKU-A", "SKU-B", "SKU-GONE"})
	require.NoError(t, err)
	assert.Equal(t, ReconcileSummary{Checked: 2, Drifted: 1, Missing: 1}, summary)

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, "SKU-B", evt.ProductID)
	assert.InDelta(t, 6.0, evt.ExpectedStock, 1e-9)
	assert.InDelta(t, 4.0, evt.Difference, 1e-9)
	assert.Equal(t, 1, evt.OperationCount)
}

func TestStockReconcileListsAllProducts(t *testing.T) {
	job := newTestJob(newSource(), nil)

	summary, err := job.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Drifted)
}

func TestStockReconcileSourceFailure(t *testing.T) {
	src := newSource()
	src.failOn = "SKU-A"
	job := newTestJob(src, nil)

	_, err := job.Reconcile(context.Background(), []string{"SKU-A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SKU-A")
}

func TestStockReconcileHandle(t *testing.T) {
	job := newTestJob(newSource(), nil)

	task, err := NewStockReconcileTask("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, TaskStockReconcile, task.Type())
	var payload StockReconcilePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, []string{"SKU-A"}, payload.ProductIDs)
	require.NoError(t, job.Handle(context.Background(), task))

	bad := asynq.NewTask(TaskStockReconcile, []byte("{"))
	err = job.Handle(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)

	var nilJob *StockReconcileJob
	assert.Error(t, nilJob.Handle(context.Background(), task))
}
