package stockledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Snapshot is what the system of record reports for a product.
type Snapshot struct {
	ProductID    string
	Reported     float64
	InitialStock float64
}

// Source loads persisted operations and stock snapshots for batch
// reconciliation.
type Source interface {
	Operations(ctx context.Context, productID string) ([]Operation, error)
	Snapshot(ctx context.Context, productID string) (Snapshot, error)
}

// ErrProductNotFound indicates a product with no stock snapshot.
var ErrProductNotFound = errors.New("stockledger: product not found")

// Replay builds a fresh ledger from ops.
func Replay(ops []Operation) *Ledger {
	l := NewLedger()
	for _, op := range ops {
		l.Record(op)
	}
	return l
}

// Journal durably appends operations alongside the in-memory ledger.
type Journal interface {
	Append(ctx context.Context, op Operation) error
}

// PostgresJournal persists operations in stock_operations and reads the
// product_stock table maintained by the inventory service.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal constructs the journal.
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// Operations implements Source.
func (s *PostgresJournal) Operations(ctx context.Context, productID string) ([]Operation, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, product_id, kind, quantity, occurred_at, COALESCE(order_ref, '')
FROM stock_operations WHERE product_id = $1 ORDER BY seq`, productID)
	if err != nil {
		return nil, fmt.Errorf("stockledger: query operations: %w", err)
	}
	defer rows.Close()
	var ops []Operation
	for rows.Next() {
		var op Operation
		var kind string
		if err := rows.Scan(&op.ID, &op.ProductID, &kind, &op.Quantity, &op.Timestamp, &op.OrderRef); err != nil {
			return nil, err
		}
		op.Kind = OperationKind(kind)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Snapshot implements Source.
func (s *PostgresJournal) Snapshot(ctx context.Context, productID string) (Snapshot, error) {
	snap := Snapshot{ProductID: productID}
	err := s.pool.QueryRow(ctx, `SELECT on_hand, initial_stock FROM product_stock WHERE product_id = $1`, productID).
		Scan(&snap.Reported, &snap.InitialStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrProductNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("stockledger: query snapshot: %w", err)
	}
	return snap, nil
}

// Append implements Journal.
func (s *PostgresJournal) Append(ctx context.Context, op Operation) error {
	var orderRef *string
	if op.OrderRef != "" {
		orderRef = &op.OrderRef
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO stock_operations (id, product_id, kind, quantity, occurred_at, order_ref)
VALUES ($1, $2, $3, $4, $5, $6)`, op.ID, op.ProductID, string(op.Kind), op.Quantity, op.Timestamp, orderRef)
	if err != nil {
		return fmt.Errorf("stockledger: append operation: %w", err)
	}
	return nil
}

// ProductLister enumerates every product with a stock snapshot.
type ProductLister interface {
	Products(ctx context.Context) ([]string, error)
}

// Products implements ProductLister.
func (s *PostgresJournal) Products(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_id FROM product_stock ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("stockledger: query products: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
