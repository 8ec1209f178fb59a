package stockledger

import "time"

// OperationKind enumerates stock-affecting actions recorded in the ledger.
type OperationKind string

const (
	// OperationCreate draws stock down, e.g. a new order.
	OperationCreate OperationKind = "create"
	// OperationEdit draws stock down, e.g. an order line raised.
	OperationEdit OperationKind = "edit"
	// OperationDelete returns stock, e.g. a cancelled order.
	OperationDelete OperationKind = "delete"
	// OperationRestore returns stock, e.g. rolling back a previous state.
	OperationRestore OperationKind = "restore"
)

// Sign returns the multiplier applied to an operation's quantity when
// folding. Kinds outside the table contribute nothing.
func (k OperationKind) Sign() float64 {
	switch k {
	case OperationCreate, OperationEdit:
		return -1
	case OperationDelete, OperationRestore:
		return 1
	}
	return 0
}

// Operation is one immutable ledger record.
type Operation struct {
	ID        string        `json:"id"`
	ProductID string        `json:"product_id"`
	Kind      OperationKind `json:"kind"`
	Quantity  float64       `json:"quantity"`
	Timestamp time.Time     `json:"timestamp"`
	OrderRef  string        `json:"order_ref,omitempty"`
}

// Result summarises a reconciliation of one product.
type Result struct {
	ProductID     string      `json:"product_id"`
	IsValid       bool        `json:"is_valid"`
	ExpectedStock float64     `json:"expected_stock"`
	ReportedStock float64     `json:"reported_stock"`
	Difference    float64     `json:"difference"`
	Operations    []Operation `json:"operations"`
}

// Tolerance absorbs floating point accumulation only.
const Tolerance = 0.01
