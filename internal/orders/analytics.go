package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyaandrean/order-service/internal/security"
)

type Analytics struct {
	TotalOrders       int64            `json:"total_orders"`
	TotalRevenue      decimal.Decimal  `json:"total_revenue"`
	AverageOrderValue decimal.Decimal  `json:"average_order_value"`
	StatusBreakdown   map[Status]int64 `json:"status_breakdown"`
	PeriodStart       time.Time        `json:"period_start"`
	PeriodEnd         time.Time        `json:"period_end"`
}

type EnhancedAnalytics struct {
	Analytics
	SecurityMetrics      security.Snapshot `json:"security_metrics"`
	RecentSecurityEvents []security.Event  `json:"recent_security_events"`
	AnomalyScore         float64           `json:"anomaly_score"`
}

// ComputeAnalytics aggregates a fetched order window. Revenue counts
// delivered orders only; the average divides revenue by the full window
// size, half-up to two decimals, and is zero for an empty window.
func ComputeAnalytics(window []Order, start, end time.Time) Analytics {
	revenue := decimal.Zero
	breakdown := make(map[Status]int64)
	for i := range window {
		o := &window[i]
		breakdown[o.Status]++
		if o.Status == StatusDelivered {
			revenue = revenue.Add(o.TotalAmount)
		}
	}

	average := decimal.Zero
	if len(window) > 0 {
		average = revenue.DivRound(decimal.NewFromInt(int64(len(window))), 2)
	}

	return Analytics{
		TotalOrders:       int64(len(window)),
		TotalRevenue:      revenue,
		AverageOrderValue: average,
		StatusBreakdown:   breakdown,
		PeriodStart:       start,
		PeriodEnd:         end,
	}
}
