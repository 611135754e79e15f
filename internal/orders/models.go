package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is embedded on the order for both shipping and billing.
// PhoneNumber is only meaningful on the shipping side.
type Address struct {
	FullName     string `json:"full_name" validate:"required"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country" validate:"required"`
	PhoneNumber  string `json:"phone_number,omitempty"`
}

type Order struct {
	ID             int64
	OrderNumber    string
	CustomerID     string
	Status         Status
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal

	// Items are owned exclusively by the order; no mutation API exists
	// after creation, so TotalAmount is fixed at creation time.
	Items []OrderItem

	ShippingAddress Address
	BillingAddress  Address

	Notes string
	Tags  []string

	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeliveredAt *time.Time
}

// FinalAmount is the customer-facing amount: total minus order-level
// discount, plus tax and shipping.
func (o *Order) FinalAmount() decimal.Decimal {
	return o.TotalAmount.Sub(o.DiscountAmount).Add(o.TaxAmount).Add(o.ShippingCost)
}

type OrderItem struct {
	ID             int64
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	Specifications string
}

// TotalPrice is quantity x unit price minus the item discount, clamped at
// zero when the discount exceeds the base amount.
func (it *OrderItem) TotalPrice() decimal.Decimal {
	total := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Sub(it.DiscountAmount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// sumItemTotals computes the order total from its line items.
func sumItemTotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].TotalPrice())
	}
	return total
}

// dedupeTags keeps the first occurrence of each tag.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
