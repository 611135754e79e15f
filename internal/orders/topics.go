package orders

const (
	TopicOrderCreated         = "order-created"
	TopicOrderStatusChanged   = "order-status-changed"
	TopicPaymentCompleted     = "payment-completed"
	TopicInventoryReserved    = "inventory-reserved"
	TopicShippingLabelCreated = "shipping-label-created"
)

// Partition key = order number, so every event for one order keeps its
// relative ordering.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }
