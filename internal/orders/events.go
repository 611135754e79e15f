package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventOrderStatusChanged   = "OrderStatusChanged"
	EventPaymentCompleted     = "PaymentCompleted"
	EventInventoryReserved    = "InventoryReserved"
	EventShippingLabelCreated = "ShippingLabelCreated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, correlationID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       mustJSON(payload),
	}
}

// ---- outbound payloads ----

type OrderCreatedEvent struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Timestamp   time.Time       `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID        int64     `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	PreviousStatus Status    `json:"previous_status"`
	NewStatus      Status    `json:"new_status"`
	Timestamp      time.Time `json:"timestamp"`
}

// ---- inbound payloads ----

type PaymentCompletedEvent struct {
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentID   string          `json:"payment_id"`
	Timestamp   time.Time       `json:"timestamp"`
}

type InventoryReservedEvent struct {
	OrderNumber string    `json:"order_number"`
	ProductIDs  []string  `json:"product_ids"`
	Timestamp   time.Time `json:"timestamp"`
}

type ShippingLabelCreatedEvent struct {
	OrderNumber    string    `json:"order_number"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	Timestamp      time.Time `json:"timestamp"`
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
