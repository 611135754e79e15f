package orders

import "github.com/shopspring/decimal"

// Heuristic risk scoring: fixed additive weights, capped at 1.0. Not a
// learned model.

var (
	anomalyValueThreshold   = decimal.NewFromInt(5000)
	highValueOrderThreshold = decimal.NewFromInt(1000)
	periodHighValueRatioMax = 0.3
	periodVolumeThreshold   = 1000
	requestItemCountTrigger = 50
)

// requestValue is the raw requested value: sum of quantity x unit price,
// ignoring discounts.
func requestValue(items []ItemRequest) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}
	return total
}

// ScoreRequest rates a creation request in [0.0, 1.0]:
// +0.3 for more than 50 items, +0.2 for a requested value above 5000,
// +0.2 for any duplicate product id.
func ScoreRequest(req *CreateOrderRequest) float64 {
	score := 0.0

	if len(req.Items) > requestItemCountTrigger {
		score += 0.3
	}

	if requestValue(req.Items).GreaterThan(anomalyValueThreshold) {
		score += 0.2
	}

	seen := make(map[string]bool, len(req.Items))
	for i := range req.Items {
		if seen[req.Items[i].ProductID] {
			score += 0.2
			break
		}
		seen[req.Items[i].ProductID] = true
	}

	return min(score, 1.0)
}

// ScorePeriod rates a batch of persisted orders: +0.3 for more than 1000
// orders, +0.2 when the fraction of orders with total above 1000 exceeds
// 0.3. Empty batches score zero.
func ScorePeriod(batch []Order) float64 {
	if len(batch) == 0 {
		return 0.0
	}

	score := 0.0
	if len(batch) > periodVolumeThreshold {
		score += 0.3
	}

	highValue := 0
	for i := range batch {
		if batch[i].TotalAmount.GreaterThan(highValueOrderThreshold) {
			highValue++
		}
	}
	if float64(highValue)/float64(len(batch)) > periodHighValueRatioMax {
		score += 0.2
	}

	return min(score, 1.0)
}
