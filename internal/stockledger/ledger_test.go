package stockledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededLedger() *Ledger {
	l := NewLedger()
	l.Record(Operation{ID: "op-1", ProductID: "SKU-COLA-330", Kind: OperationCreate, Quantity: 5, Timestamp: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)})
	l.Record(Operation{ID: "op-2", ProductID: "SKU-COLA-330", Kind: OperationDelete, Quantity: 2, Timestamp: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)})
	return l
}

func TestExpectedStockFoldsSignTable(t *testing.T) {
	l := seededLedger()

	assert.InDelta(t, 7.0, l.ExpectedStock("SKU-COLA-330", 10), 1e-9)

	l.Record(Operation{ProductID: "SKU-COLA-330", Kind: OperationEdit, Quantity: 1.5})
	l.Record(Operation{ProductID: "SKU-COLA-330", Kind: OperationRestore, Quantity: 0.5})
	assert.InDelta(t, 6.0, l.ExpectedStock("SKU-COLA-330", 10), 1e-9)
}

func TestExpectedStockIgnoresUnknownKinds(t *testing.T) {
	l := seededLedger()
	l.Record(Operation{ProductID: "SKU-COLA-330", Kind: OperationKind("transfer"), Quantity: 100})

	assert.InDelta(t, 7.0, l.ExpectedStock("SKU-COLA-330", 10), 1e-9)
	assert.Len(t, l.OperationsFor("SKU-COLA-330"), 3)
}

func TestExpectedStockIsolatesProducts(t *testing.T) {
	l := seededLedger()
	l.Record(Operation{ProductID: "SKU-WATER-600", Kind: OperationCreate, Quantity: 12})

	assert.InDelta(t, 7.0, l.ExpectedStock("SKU-COLA-330", 10), 1e-9)
	assert.InDelta(t, -12.0, l.ExpectedStock("SKU-WATER-600", 0), 1e-9)
	assert.InDelta(t, 4.0, l.ExpectedStock("SKU-UNKNOWN", 4), 1e-9)
}

func TestValidateWithinTolerance(t *testing.T) {
	l := seededLedger()

	res := l.Validate("SKU-COLA-330", 7, 10)
	assert.True(t, res.IsValid)
	assert.Zero(t, res.Difference)
	assert.InDelta(t, 7.0, res.ExpectedStock, 1e-9)
	assert.Equal(t, 7.0, res.ReportedStock)
	assert.Len(t, res.Operations, 2)

	res = l.Validate("SKU-COLA-330", 7.005, 10)
	assert.True(t, res.IsValid)
	assert.InDelta(t, 0.005, res.Difference, 1e-9)

	res = l.Validate("SKU-COLA-330", 7.02, 10)
	assert.False(t, res.IsValid)
	assert.InDelta(t, 0.02, res.Difference, 1e-9)

	res = l.Validate("SKU-COLA-330", 6.5, 10)
	assert.False(t, res.IsValid)
	assert.InDelta(t, -0.5, res.Difference, 1e-9)
}

func TestClearHistoryResetsToInitial(t *testing.T) {
	l := seededLedger()
	l.ClearHistory()

	assert.Equal(t, 10.0, l.ExpectedStock("SKU-COLA-330", 10))
	assert.Empty(t, l.OperationsFor("SKU-COLA-330"))
	assert.Zero(t, l.Len())
}

func TestOperationsForReturnsSnapshot(t *testing.T) {
	l := seededLedger()

	ops := l.OperationsFor("SKU-COLA-330")
	require.Len(t, ops, 2)
	assert.Equal(t, "op-1", ops[0].ID)
	assert.Equal(t, "op-2", ops[1].ID)

	ops[0].Quantity = 999
	l.Record(Operation{ProductID: "SKU-COLA-330", Kind: OperationCreate, Quantity: 1})

	assert.Len(t, ops, 2)
	again := l.OperationsFor("SKU-COLA-330")
	require.Len(t, again, 3)
	assert.Equal(t, 5.0, again[0].Quantity)
}

func TestLedgerConcurrentRecord(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Record(Operation{ProductID: "SKU-TEA-250", Kind: OperationCreate, Quantity: 1})
				_ = l.ExpectedStock("SKU-TEA-250", 0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, l.Len())
	assert.InDelta(t, -800.0, l.ExpectedStock("SKU-TEA-250", 0), 1e-9)
}

func TestReplay(t *testing.T) {
	ops := seededLedger().OperationsFor("SKU-COLA-330")
	l := Replay(ops)

	assert.Equal(t, ops, l.OperationsFor("SKU-COLA-330"))
	assert.True(t, l.Validate("SKU-COLA-330", 7, 10).IsValid)
}
