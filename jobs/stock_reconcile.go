package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/orderdesk/internal/jobs"
	"github.com/odyssey-erp/orderdesk/internal/stockledger"
)

const defaultReconcileConcurrency = 8

// ReconcileSummary reports the outcome of one batch.
type ReconcileSummary struct {
	Checked int
	Drifted int
	Missing int
}

// StockReconcileJob rebuilds a ledger per product from the journal and checks
// it against the reported on-hand quantity.
type StockReconcileJob struct {
	Source      stockledger.Source
	Publisher   stockledger.DriftPublisher
	Observer    stockledger.DriftObserver
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
	clock       func() time.Time
}

// NewStockReconcileJob wires dependencies for the reconcile handler.
func NewStockReconcileJob(source stockledger.Source, publisher stockledger.DriftPublisher, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockReconcileJob {
	return &StockReconcileJob{
		Source:      source,
		Publisher:   publisher,
		Logger:      logger,
		Metrics:     metrics,
		Concurrency: defaultReconcileConcurrency,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskStockReconcile tasks.
func (j *StockReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("stock reconcile: handler not configured")
	}
	var payload StockReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("stock reconcile: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskStockReconcile)
	start := j.now()
	summary, err := j.Reconcile(ctx, payload.ProductIDs)
	if err != nil {
		j.logger().Error("stock reconcile failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("completed stock reconcile",
		slog.Int("checked", summary.Checked),
		slog.Int("drifted", summary.Drifted),
		slog.Int("missing", summary.Missing),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return tracker.End(nil)
}

// Reconcile checks productIDs, or every listed product when productIDs is
// empty. Products without a snapshot are counted as missing and skipped.
func (j *StockReconcileJob) Reconcile(ctx context.Context, productIDs []string) (ReconcileSummary, error) {
	if j.Source == nil {
		return ReconcileSummary{}, errors.New("stock reconcile: source not configured")
	}
	if len(productIDs) == 0 {
		lister, ok := j.Source.(stockledger.ProductLister)
		if !ok {
			return ReconcileSummary{}, errors.New("stock reconcile: no products given and source cannot list them")
		}
		ids, err := lister.Products(ctx)
		if err != nil {
			return ReconcileSummary{}, err
		}
		productIDs = ids
	}

	var checked, drifted, missing atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency())
	for _, id := range productIDs {
		id := id
		g.Go(func() error {
			res, err := j.reconcileOne(gctx, id)
			switch {
			case errors.Is(err, stockledger.ErrProductNotFound):
				missing.Add(1)
				j.logger().Warn("stock reconcile skipped product without snapshot", slog.String("product_id", id))
				return nil
			case err != nil:
				return fmt.Errorf("product %s: %w", id, err)
			}
			checked.Add(1)
			if !res.IsValid {
				drifted.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	summary := ReconcileSummary{Checked: int(checked.Load()), Drifted: int(drifted.Load()), Missing: int(missing.Load())}
	j.Metrics.AddReconciled(summary.Checked, summary.Drifted)
	return summary, err
}

func (j *StockReconcileJob) reconcileOne(ctx context.Context, productID string) (stockledger.Result, error) {
	snap, err := j.Source.Snapshot(ctx, productID)
	if err != nil {
		return stockledger.Result{}, err
	}
	ops, err := j.Source.Operations(ctx, productID)
	if err != nil {
		return stockledger.Result{}, err
	}
	rec := stockledger.NewReconciler(stockledger.Replay(ops), stockledger.ReconcilerConfig{
		Logger:    j.logger(),
		Publisher: j.Publisher,
		Observer:  j.Observer,
		Now:       j.now,
	})
	return rec.Check(ctx, productID, snap.Reported, snap.InitialStock), nil
}

func (j *StockReconcileJob) concurrency() int {
	if j.Concurrency <= 0 {
		return defaultReconcileConcurrency
	}
	return j.Concurrency
}

func (j *StockReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("task", TaskStockReconcile))
	}
	return slog.Default().With(slog.String("task", TaskStockReconcile))
}

func (j *StockReconcileJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
