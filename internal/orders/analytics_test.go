package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeAnalyticsEmptyWindow(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	a := ComputeAnalytics(nil, start, end)

	assert.Equal(t, int64(0), a.TotalOrders)
	assert.True(t, a.TotalRevenue.IsZero())
	assert.True(t, a.AverageOrderValue.IsZero())
	assert.Empty(t, a.StatusBreakdown)
	assert.Equal(t, start, a.PeriodStart)
	assert.Equal(t, end, a.PeriodEnd)
}

func TestComputeAnalyticsRevenueCountsDeliveredOnly(t *testing.T) {
	window := []Order{
		{Status: StatusDelivered, TotalAmount: decimal.RequireFromString("100.00")},
		{Status: StatusDelivered, TotalAmount: decimal.RequireFromString("50.00")},
		{Status: StatusCancelled, TotalAmount: decimal.RequireFromString("1000.00")},
	}

	a := ComputeAnalytics(window, time.Time{}, time.Time{})

	assert.Equal(t, int64(3), a.TotalOrders)
	assert.True(t, a.TotalRevenue.Equal(decimal.RequireFromString("150.00")), "revenue %s", a.TotalRevenue)
	// revenue / window size, half-up to two decimals
	assert.True(t, a.AverageOrderValue.Equal(decimal.RequireFromString("50.00")), "average %s", a.AverageOrderValue)
	assert.Equal(t, int64(2), a.StatusBreakdown[StatusDelivered])
	assert.Equal(t, int64(1), a.StatusBreakdown[StatusCancelled])
}

func TestComputeAnalyticsHalfUpRounding(t *testing.T) {
	window := []Order{
		{Status: StatusDelivered, TotalAmount: decimal.RequireFromString("10.00")},
		{Status: StatusDelivered, TotalAmount: decimal.RequireFromString("0.01")},
		{Status: StatusPending, TotalAmount: decimal.RequireFromString("99.99")},
	}

	a := ComputeAnalytics(window, time.Time{}, time.Time{})

	// 10.01 / 3 = 3.33666... -> 3.34
	assert.True(t, a.AverageOrderValue.Equal(decimal.RequireFromString("3.34")), "average %s", a.AverageOrderValue)
}

func TestComputeAnalyticsHighTotalsExcludedWhenNotDelivered(t *testing.T) {
	window := []Order{
		{Status: StatusPending, TotalAmount: decimal.RequireFromString("99999.00")},
		{Status: StatusShipped, TotalAmount: decimal.RequireFromString("12345.00")},
	}

	a := ComputeAnalytics(window, time.Time{}, time.Time{})

	assert.True(t, a.TotalRevenue.IsZero())
	assert.True(t, a.AverageOrderValue.IsZero())
	assert.Equal(t, int64(2), a.TotalOrders)
}
