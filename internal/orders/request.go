package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	CustomerID      string        `json:"customer_id" validate:"required"`
	Items           []ItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Address       `json:"shipping_address" validate:"required"`
	BillingAddress  *Address      `json:"billing_address,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
}

type ItemRequest struct {
	ProductID      string          `json:"product_id" validate:"required"`
	ProductName    string          `json:"product_name" validate:"required"`
	Quantity       int             `json:"quantity" validate:"required,min=1"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Specifications string          `json:"specifications,omitempty"`
}

type StatusUpdateRequest struct {
	Status Status `json:"status" validate:"required"`
	Notes  string `json:"notes,omitempty"`
}

type OrderResponse struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      string          `json:"customer_id"`
	Status          Status          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	Items           []ItemResponse  `json:"items"`
	ShippingAddress Address         `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
}

type ItemResponse struct {
	ID             int64           `json:"id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Specifications string          `json:"specifications,omitempty"`
}

// toOrderResponse is the explicit entity-to-view projection.
func toOrderResponse(o *Order) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		items = append(items, ItemResponse{
			ID:             it.ID,
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			TotalPrice:     it.TotalPrice(),
			Specifications: it.Specifications,
		})
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount,
		FinalAmount:     o.FinalAmount(),
		Items:           items,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		DeliveredAt:     o.DeliveredAt,
		Notes:           o.Notes,
		Tags:            o.Tags,
	}
}
