package orders

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateOrderNumber builds a human-facing order number from the current
// time plus a narrow random suffix. Collisions are possible under
// concurrent creation; the unique index on orders.order_number is the
// enforcement point, not this generator.
func GenerateOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%03d", time.Now().UnixMilli(), rand.Intn(1000))
}
