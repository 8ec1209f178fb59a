package orders

import "time"

type CreateOrderRequest struct {
	Channel    string          `json:"channel" validate:"required"`
	ActorID    string          `json:"actor_id" validate:"omitempty,max=128"`
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	OrderDate  time.Time       `json:"order_date"`
	Notes      *string         `json:"notes,omitempty"`
	Lines      []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateLineReq struct {
	ProductID       string  `json:"product_id" validate:"required,max=64"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	UOM             string  `json:"uom" validate:"required,max=20"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64 `json:"tax_percent" validate:"gte=0,lte=100"`
	LineOrder       int     `json:"line_order" validate:"gte=0"`
}

type UpdateLinesRequest struct {
	Lines []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

type ListOrdersRequest struct {
	Status   *Status    `json:"status,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	Limit    int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int        `json:"offset" validate:"gte=0"`
}
