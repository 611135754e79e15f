package redisx

import "time"

const (
	// Cached order response: order:resp:{order_number} -> OrderResponse JSON
	KeyOrderResponse = "order:resp:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
