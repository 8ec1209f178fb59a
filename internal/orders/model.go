package orders

import (
	"time"

	"github.com/odyssey-erp/orderdesk/internal/ordernumber"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

type Order struct {
	ID                 int64               `json:"id" db:"id"`
	DocNumber          string              `json:"doc_number" db:"doc_number"`
	Channel            ordernumber.Channel `json:"channel" db:"channel"`
	ActorID            string              `json:"actor_id,omitempty" db:"actor_id"`
	CustomerID         int64               `json:"customer_id" db:"customer_id"`
	OrderDate          time.Time           `json:"order_date" db:"order_date"`
	Status             Status              `json:"status" db:"status"`
	Subtotal           float64             `json:"subtotal" db:"subtotal"`
	TaxAmount          float64             `json:"tax_amount" db:"tax_amount"`
	TotalAmount        float64             `json:"total_amount" db:"total_amount"`
	Notes              *string             `json:"notes,omitempty" db:"notes"`
	CancellationReason *string             `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
	Lines              []Line              `json:"lines,omitempty" db:"-"`
}

type Line struct {
	ID              int64   `json:"id" db:"id"`
	OrderID         int64   `json:"order_id" db:"order_id"`
	ProductID       string  `json:"product_id" db:"product_id"`
	Quantity        float64 `json:"quantity" db:"quantity"`
	UOM             string  `json:"uom" db:"uom"`
	UnitPrice       float64 `json:"unit_price" db:"unit_price"`
	DiscountPercent float64 `json:"discount_percent" db:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount" db:"discount_amount"`
	TaxPercent      float64 `json:"tax_percent" db:"tax_percent"`
	TaxAmount       float64 `json:"tax_amount" db:"tax_amount"`
	LineTotal       float64 `json:"line_total" db:"line_total"`
	LineOrder       int     `json:"line_order" db:"line_order"`
}

// CalculateLineTotals derives discount, tax and total for one line.
func CalculateLineTotals(quantity, unitPrice, discountPercent, taxPercent float64) (discountAmount, taxAmount, lineTotal float64) {
	grossAmount := quantity * unitPrice
	discountAmount = grossAmount * (discountPercent / 100)
	netAmount := grossAmount - discountAmount
	taxAmount = netAmount * (taxPercent / 100)
	lineTotal = netAmount + taxAmount
	return
}
