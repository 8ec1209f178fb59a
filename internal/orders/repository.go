package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/orderdesk/internal/ordernumber"
	"github.com/odyssey-erp/orderdesk/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	// GetForUpdate reads an order and holds it until the surrounding WithTx
	// finishes.
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	Create(ctx context.Context, order Order) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	DeleteLines(ctx context.Context, orderID int64) error
	UpdateTotals(ctx context.Context, id int64, subtotal, tax, total float64) error
	// UpdateStatus moves an order from one status to another. It returns
	// ErrInvalidStatus when the order is no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to Status, reason *string) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

// serializationFailure is raised when a locked read loses to a concurrent
// writer under repeatable read.
const serializationFailure = "40001"

const orderColumns = `id, doc_number, channel, COALESCE(actor_id, ''), customer_id, order_date, status,
	subtotal, tax_amount, total_amount, notes, cancellation_reason, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var channel, status string
	err := row.Scan(&o.ID, &o.DocNumber, &channel, &o.ActorID, &o.CustomerID, &o.OrderDate, &status,
		&o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.Notes, &o.CancellationReason, &o.CreatedAt, &o.UpdatedAt)
	o.Channel = ordernumber.Channel(channel)
	o.Status = Status(status)
	return o, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	return r.get(ctx, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *repository) get(ctx context.Context, id int64, lock string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`+lock, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
			return nil, fmt.Errorf("%w: order %d changed concurrently", ErrInvalidStatus, id)
		}
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, order_id, product_id, quantity, uom, unit_price, discount_percent,
	discount_amount, tax_percent, tax_amount, line_total, line_order
FROM order_lines WHERE order_id = $1 ORDER BY line_order`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UOM, &l.UnitPrice, &l.DiscountPercent,
			&l.DiscountAmount, &l.TaxPercent, &l.TaxAmount, &l.LineTotal, &l.LineOrder); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.DateFrom != nil {
		where += fmt.Sprintf(" AND order_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		where += fmt.Sprintf(" AND order_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM orders %s ORDER BY order_date DESC, id DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o Order) (int64, error) {
	var actor *string
	if o.ActorID != "" {
		actor = &o.ActorID
	}
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO orders (doc_number, channel, actor_id, customer_id, order_date, status,
	subtotal, tax_amount, total_amount, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`, o.DocNumber, string(o.Channel), actor, o.CustomerID, o.OrderDate, string(o.Status),
		o.Subtotal, o.TaxAmount, o.TotalAmount, o.Notes).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, l Line) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO order_lines (order_id, product_id, quantity, uom, unit_price,
	discount_percent, discount_amount, tax_percent, tax_amount, line_total, line_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`, l.OrderID, l.ProductID, l.Quantity, l.UOM, l.UnitPrice,
		l.DiscountPercent, l.DiscountAmount, l.TaxPercent, l.TaxAmount, l.LineTotal, l.LineOrder).Scan(&id)
	return id, err
}

func (r *repository) DeleteLines(ctx context.Context, orderID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID)
	return err
}

func (r *repository) UpdateTotals(ctx context.Context, id int64, subtotal, tax, total float64) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET subtotal = $1, tax_amount = $2, total_amount = $3, updated_at = now()
WHERE id = $4`, subtotal, tax, total, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status, reason *string) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1, cancellation_reason = $2, updated_at = now()
WHERE id = $3 AND status = $4`, string(to), reason, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d is not %s", ErrInvalidStatus, id, from)
	}
	return nil
}

// MemoryRepository keeps orders in process memory. Used when no database is
// configured and in tests. WithTx calls run one at a time.
type MemoryRepository struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	orders map[int64]*Order
	nextID int64
	lineID int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[int64]*Order), now: time.Now}
}

func (m *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, m)
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

// GetForUpdate is Get. Exclusion comes from WithTx.
func (m *MemoryRepository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return m.Get(ctx, id)
}

func (m *MemoryRepository) List(_ context.Context, req ListOrdersRequest) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		if req.DateFrom != nil && o.OrderDate.Before(*req.DateFrom) {
			continue
		}
		if req.DateTo != nil && o.OrderDate.After(*req.DateTo) {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if req.Offset >= total {
		return nil, total, nil
	}
	out = out[req.Offset:]
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, total, nil
}

func (m *MemoryRepository) Create(_ context.Context, o Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o.ID = m.nextID
	o.Lines = nil
	o.CreatedAt = m.now()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *MemoryRepository) InsertLine(_ context.Context, l Line) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[l.OrderID]
	if !ok {
		return 0, ErrNotFound
	}
	m.lineID++
	l.ID = m.lineID
	o.Lines = append(o.Lines, l)
	return l.ID, nil
}

func (m *MemoryRepository) DeleteLines(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		o.Lines = nil
	}
	return nil
}

func (m *MemoryRepository) UpdateTotals(_ context.Context, id int64, subtotal, tax, total float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Subtotal, o.TaxAmount, o.TotalAmount = subtotal, tax, total
	o.UpdatedAt = m.now()
	return nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id int64, from, to Status, reason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return fmt.Errorf("%w: order %d is not %s", ErrInvalidStatus, id, from)
	}
	o.Status = to
	o.CancellationReason = reason
	o.UpdatedAt = m.now()
	return nil
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	return &c
}
