package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/orderdesk/internal/ordernumber"
	"github.com/odyssey-erp/orderdesk/internal/stockledger"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrEmptyLines      = errors.New("at least one line is required")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

// NumberIssuer hands out order numbers.
type NumberIssuer interface {
	Generate(ctx context.Context, channel ordernumber.Channel, actorID string, at time.Time) (string, error)
}

// StockRecorder receives the stock operations an order causes.
type StockRecorder interface {
	Record(ctx context.Context, op stockledger.Operation) stockledger.Operation
}

type Service struct {
	repo    Repository
	numbers NumberIssuer
	stock   StockRecorder
	now     func() time.Time
}

func NewService(repo Repository, numbers NumberIssuer, stock StockRecorder) *Service {
	return &Service{repo: repo, numbers: numbers, stock: stock, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	lines, err := buildLines(req.Lines)
	if err != nil {
		return nil, err
	}
	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now()
	}

	docNumber, err := s.numbers.Generate(ctx, ordernumber.Channel(req.Channel), req.ActorID, orderDate)
	if err != nil {
		return nil, fmt.Errorf("generate doc number: %w", err)
	}

	order := Order{
		DocNumber:  docNumber,
		Channel:    ordernumber.Channel(req.Channel),
		ActorID:    req.ActorID,
		CustomerID: req.CustomerID,
		OrderDate:  orderDate,
		Status:     StatusDraft,
		Notes:      req.Notes,
	}
	applyTotals(&order, lines)

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id
		for _, line := range lines {
			line.OrderID = id
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		s.recordStock(ctx, stockledger.OperationCreate, line.ProductID, line.Quantity, docNumber)
	}
	return s.repo.Get(ctx, orderID)
}

// UpdateLines replaces the lines of a draft order. Quantity increases are
// recorded as edits, decreases as restores.
func (s *Service) UpdateLines(ctx context.Context, id int64, req UpdateLinesRequest) (*Order, error) {
	lines, err := buildLines(req.Lines)
	if err != nil {
		return nil, err
	}

	var existing *Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if current.Status != StatusDraft {
			return fmt.Errorf("%w: can only update DRAFT orders", ErrInvalidStatus)
		}
		updated := *current
		applyTotals(&updated, lines)
		if err := repo.UpdateTotals(ctx, id, updated.Subtotal, updated.TaxAmount, updated.TotalAmount); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := repo.DeleteLines(ctx, id); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		for _, line := range lines {
			line.OrderID = id
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
		}
		existing = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	before := quantitiesByProduct(existing.Lines)
	after := quantitiesByProduct(lines)
	for _, productID := range productOrder(existing.Lines, lines) {
		delta := after[productID] - before[productID]
		switch {
		case delta > 0:
			s.recordStock(ctx, stockledger.OperationEdit, productID, delta, existing.DocNumber)
		case delta < 0:
			s.recordStock(ctx, stockledger.OperationRestore, productID, -delta, existing.DocNumber)
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Confirm(ctx context.Context, id int64) (*Order, error) {
	_, err := s.transition(ctx, id, StatusConfirmed, nil, func(o *Order) error {
		if o.Status != StatusDraft {
			return fmt.Errorf("%w: can only confirm DRAFT orders", ErrInvalidStatus)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Cancel returns every line's stock.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*Order, error) {
	existing, err := s.transition(ctx, id, StatusCancelled, &reason, func(o *Order) error {
		if o.Status == StatusCancelled {
			return fmt.Errorf("%w: order is already cancelled", ErrInvalidStatus)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	for _, line := range existing.Lines {
		s.recordStock(ctx, stockledger.OperationDelete, line.ProductID, line.Quantity, existing.DocNumber)
	}
	return s.repo.Get(ctx, id)
}

// Reopen moves a cancelled order back to draft and draws its stock again.
// The order keeps its original number.
func (s *Service) Reopen(ctx context.Context, id int64) (*Order, error) {
	existing, err := s.transition(ctx, id, StatusDraft, nil, func(o *Order) error {
		if o.Status != StatusCancelled {
			return fmt.Errorf("%w: only cancelled orders can be reopened", ErrInvalidStatus)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reopen order: %w", err)
	}
	for _, line := range existing.Lines {
		s.recordStock(ctx, stockledger.OperationCreate, line.ProductID, line.Quantity, existing.DocNumber)
	}
	return s.repo.Get(ctx, id)
}

// transition locks the order, lets allow veto the move, and swaps the status
// only if nobody changed it in between. It returns the order as it was
// before the move.
func (s *Service) transition(ctx context.Context, id int64, to Status, reason *string, allow func(*Order) error) (*Order, error) {
	var existing *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := allow(current); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, id, current.Status, to, reason); err != nil {
			return err
		}
		existing = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordStock(ctx context.Context, kind stockledger.OperationKind, productID string, qty float64, docNumber string) {
	if s.stock == nil {
		return
	}
	s.stock.Record(ctx, stockledger.Operation{
		ProductID: productID,
		Kind:      kind,
		Quantity:  qty,
		Timestamp: s.now().UTC(),
		OrderRef:  docNumber,
	})
}

func buildLines(reqs []CreateLineReq) ([]Line, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyLines
	}
	lines := make([]Line, 0, len(reqs))
	for i, req := range reqs {
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: %w", i+1, ErrInvalidQuantity)
		}
		discount, tax, total := CalculateLineTotals(req.Quantity, req.UnitPrice, req.DiscountPercent, req.TaxPercent)
		line := Line{
			ProductID:       req.ProductID,
			Quantity:        req.Quantity,
			UOM:             req.UOM,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
			DiscountAmount:  discount,
			TaxPercent:      req.TaxPercent,
			TaxAmount:       tax,
			LineTotal:       total,
			LineOrder:       req.LineOrder,
		}
		if line.LineOrder == 0 {
			line.LineOrder = i + 1
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func applyTotals(order *Order, lines []Line) {
	var subtotal, tax, total float64
	for _, line := range lines {
		subtotal += line.Quantity*line.UnitPrice - line.DiscountAmount
		tax += line.TaxAmount
		total += line.LineTotal
	}
	order.Subtotal = subtotal
	order.TaxAmount = tax
	order.TotalAmount = total
}

func quantitiesByProduct(lines []Line) map[string]float64 {
	out := make(map[string]float64, len(lines))
	for _, line := range lines {
		out[line.ProductID] += line.Quantity
	}
	return out
}

// productOrder lists product ids in first-seen order across both line sets so
// recorded operations are deterministic.
func productOrder(sets ...[]Line) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, lines := range sets {
		for _, line := range lines {
			if !seen[line.ProductID] {
				seen[line.ProductID] = true
				ids = append(ids, line.ProductID)
			}
		}
	}
	return ids
}
