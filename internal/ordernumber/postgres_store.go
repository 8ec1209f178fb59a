package ordernumber

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the subset of pgxpool.Pool / pgx.Tx the store needs.
type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const (
	incrCounterSQL = `INSERT INTO order_number_counters (key, value, updated_at)
VALUES ($1, 1, now())
ON CONFLICT (key) DO UPDATE SET value = order_number_counters.value + 1, updated_at = now()
RETURNING value`
	getCounterSQL    = `SELECT value FROM order_number_counters WHERE key = $1`
	resetCountersSQL = `DELETE FROM order_number_counters`
)

// PostgresStore keeps counters in the order_number_counters table. The upsert
// takes a row lock, so concurrent increments on one key serialise.
type PostgresStore struct {
	db dbtx
}

// NewPostgresStore constructs the store over a pool or transaction.
func NewPostgresStore(db dbtx) *PostgresStore {
	return &PostgresStore{db: db}
}

// Incr implements CounterStore.
func (s *PostgresStore) Incr(ctx context.Context, key string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("ordernumber: postgres store not initialised")
	}
	var val int64
	if err := s.db.QueryRow(ctx, incrCounterSQL, key).Scan(&val); err != nil {
		return 0, fmt.Errorf("ordernumber: postgres incr: %w", err)
	}
	return val, nil
}

// Get implements CounterStore.
func (s *PostgresStore) Get(ctx context.Context, key string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("ordernumber: postgres store not initialised")
	}
	var val int64
	err := s.db.QueryRow(ctx, getCounterSQL, key).Scan(&val)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ordernumber: postgres get: %w", err)
	}
	return val, nil
}

// Reset implements CounterStore.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("ordernumber: postgres store not initialised")
	}
	if _, err := s.db.Exec(ctx, resetCountersSQL); err != nil {
		return fmt.Errorf("ordernumber: postgres reset: %w", err)
	}
	return nil
}
