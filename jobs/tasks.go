package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockReconcile replays journaled stock operations and checks them
	// against reported stock.
	TaskStockReconcile = "stock:reconcile"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// StockReconcilePayload selects the products to reconcile. An empty list
// means every product the source knows about.
type StockReconcilePayload struct {
	ProductIDs []string `json:"product_ids,omitempty"`
}

// NewStockReconcileTask constructs an Asynq task.
func NewStockReconcileTask(productIDs ...string) (*asynq.Task, error) {
	data, err := json.Marshal(StockReconcilePayload{ProductIDs: productIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockReconcile, data, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask constructs the payload-less cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault))
}
