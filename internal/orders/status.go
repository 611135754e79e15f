package orders

import "fmt"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

var knownStatuses = map[Status]bool{
	StatusPending:    true,
	StatusConfirmed:  true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
	StatusRefunded:   true,
}

// Transitions are deliberately unrestricted: any known status may be set
// after any other (admin override). Only unknown values are rejected.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !knownStatuses[st] {
		return "", fmt.Errorf("unknown order status: %q", s)
	}
	return st, nil
}
