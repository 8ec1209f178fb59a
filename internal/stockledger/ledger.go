package stockledger

import (
	"math"
	"sync"
)

// Ledger is the append-only, in-memory log of stock operations. It is a
// diagnostic: nothing it does fails.
type Ledger struct {
	mu  sync.RWMutex
	ops []Operation
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends op.
func (l *Ledger) Record(op Operation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

// OperationsFor returns a copy of every operation for productID in append
// order.
func (l *Ledger) OperationsFor(productID string) []Operation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Operation, 0)
	for _, op := range l.ops {
		if op.ProductID == productID {
			out = append(out, op)
		}
	}
	return out
}

// ExpectedStock folds the product's operations over initial.
func (l *Ledger) ExpectedStock(productID string, initial float64) float64 {
	return fold(l.OperationsFor(productID), initial)
}

// Validate compares reported stock with the ledger's expectation.
func (l *Ledger) Validate(productID string, reported, initial float64) Result {
	ops := l.OperationsFor(productID)
	expected := fold(ops, initial)
	diff := reported - expected
	return Result{
		ProductID:     productID,
		IsValid:       math.Abs(diff) < Tolerance,
		ExpectedStock: expected,
		ReportedStock: reported,
		Difference:    diff,
		Operations:    ops,
	}
}

// ClearHistory drops every recorded operation.
func (l *Ledger) ClearHistory() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = nil
}

// Len reports how many operations are held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ops)
}

func fold(ops []Operation, initial float64) float64 {
	stock := initial
	for _, op := range ops {
		stock += op.Kind.Sign() * op.Quantity
	}
	return stock
}
