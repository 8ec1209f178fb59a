package stockledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DriftEvent is emitted when a reconciliation finds reported stock outside
// tolerance.
type DriftEvent struct {
	ProductID      string    `json:"product_id"`
	ExpectedStock  float64   `json:"expected_stock"`
	ReportedStock  float64   `json:"reported_stock"`
	Difference     float64   `json:"difference"`
	OperationCount int       `json:"operation_count"`
	DetectedAt     time.Time `json:"detected_at"`
}

// DriftPublisher forwards drift events to other services.
type DriftPublisher interface {
	PublishDrift(ctx context.Context, evt DriftEvent) error
}

// DriftObserver counts drift detections.
type DriftObserver interface {
	StockDriftDetected()
}

// ReconcilerConfig groups optional collaborators.
type ReconcilerConfig struct {
	Logger    *slog.Logger
	Publisher DriftPublisher
	Observer  DriftObserver
	Journal   Journal
	Now       func() time.Time
}

// Reconciler wraps a Ledger and reports drift found by Check. Publishing
// problems are logged; Check itself never fails.
type Reconciler struct {
	ledger    *Ledger
	logger    *slog.Logger
	publisher DriftPublisher
	observer  DriftObserver
	journal   Journal
	now       func() time.Time
}

// NewReconciler builds a Reconciler over ledger.
func NewReconciler(ledger *Ledger, cfg ReconcilerConfig) *Reconciler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{ledger: ledger, logger: logger, publisher: cfg.Publisher, observer: cfg.Observer, journal: cfg.Journal, now: now}
}

// Ledger exposes the wrapped ledger.
func (r *Reconciler) Ledger() *Ledger {
	return r.ledger
}

// Record stamps op with an id and timestamp when missing, appends it to the
// ledger and mirrors it to the journal. Journal failures are logged only.
func (r *Reconciler) Record(ctx context.Context, op Operation) Operation {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = r.now().UTC()
	}
	r.ledger.Record(op)
	if r.journal != nil {
		if err := r.journal.Append(ctx, op); err != nil {
			r.logger.WarnContext(ctx, "journal stock operation", slog.String("operation_id", op.ID), slog.Any("error", err))
		}
	}
	return op
}

// Check validates productID and reports drift when the result is invalid.
func (r *Reconciler) Check(ctx context.Context, productID string, reported, initial float64) Result {
	res := r.ledger.Validate(productID, reported, initial)
	if res.IsValid {
		return res
	}
	r.logger.WarnContext(ctx, "stock drift detected",
		slog.String("product_id", productID),
		slog.Float64("expected", res.ExpectedStock),
		slog.Float64("reported", res.ReportedStock),
		slog.Float64("difference", res.Difference),
	)
	if r.observer != nil {
		r.observer.StockDriftDetected()
	}
	if r.publisher != nil {
		evt := DriftEvent{
			ProductID:      productID,
			ExpectedStock:  res.ExpectedStock,
			ReportedStock:  res.ReportedStock,
			Difference:     res.Difference,
			OperationCount: len(res.Operations),
			DetectedAt:     r.now().UTC(),
		}
		if err := r.publisher.PublishDrift(ctx, evt); err != nil {
			r.logger.WarnContext(ctx, "publish stock drift", slog.String("product_id", productID), slog.Any("error", err))
		}
	}
	return res
}
