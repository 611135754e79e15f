package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rasyaandrean/order-service/internal/metrics"
	"github.com/rasyaandrean/order-service/internal/mocks"
	"github.com/rasyaandrean/order-service/internal/orders"
	"github.com/rasyaandrean/order-service/internal/security"
)

func newService(store *mocks.MockStore, pub *mocks.MockPublisher, cache orders.Cache) (*orders.Service, *security.Log) {
	seclog := security.NewLog()
	return orders.NewService(store, pub, cache, seclog, metrics.New(), "order-service-test"), seclog
}

func shipping() orders.Address {
	return orders.Address{
		FullName:     "Jane Roe",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   "62701",
		Country:      "US",
	}
}

func validRequest() *orders.CreateOrderRequest {
	return &orders.CreateOrderRequest{
		CustomerID: "cust-1",
		Items: []orders.ItemRequest{
			{ProductID: "P1", ProductName: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "P2", ProductName: "Gadget", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		ShippingAddress: shipping(),
	}
}

func TestCreateOrder(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	store.On("Save", mock.Anything, mock.AnythingOfType("*orders.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*orders.Order).ID = 42
	})
	pub.On("Publish", orders.TopicOrderCreated, mock.Anything, mock.Anything).Return()

	svc, _ := newService(store, pub, nil)
	resp, err := svc.CreateOrder(context.Background(), validRequest(), "10.0.0.1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, orders.StatusPending, resp.Status)
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("25.00")), "total %s", resp.TotalAmount)
	assert.NotEmpty(t, resp.OrderNumber)
	assert.Len(t, resp.Items, 2)
	assert.False(t, resp.CreatedAt.IsZero())

	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateOrderBillingDefaultsToShipping(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	var saved *orders.Order
	store.On("Save", mock.Anything, mock.AnythingOfType("*orders.Order")).Return(nil).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*orders.Order)
	})
	pub.On("Publish", orders.TopicOrderCreated, mock.Anything, mock.Anything).Return()

	svc, _ := newService(store, pub, nil)
	_, err := svc.CreateOrder(context.Background(), validRequest(), "10.0.0.1", "user-1")
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, saved.ShippingAddress.FullName, saved.BillingAddress.FullName)
	assert.Equal(t, saved.ShippingAddress.AddressLine1, saved.BillingAddress.AddressLine1)
}

func TestCreateOrderPublishedEventCarriesOrderFields(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	store.On("Save", mock.Anything, mock.AnythingOfType("*orders.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*orders.Order).ID = 7
	})

	var published []byte
	pub.On("Publish", orders.TopicOrderCreated, mock.Anything, mock.Anything).Return().Run(func(args mock.Arguments) {
		published = args.Get(2).([]byte)
	})

	svc, _ := newService(store, pub, nil)
	resp, err := svc.CreateOrder(context.Background(), validRequest(), "10.0.0.1", "user-1")
	require.NoError(t, err)

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(published, &env))
	assert.Equal(t, orders.EventOrderCreated, env.EventType)
	assert.Equal(t, resp.OrderNumber, env.CorrelationID)

	var ev orders.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(env.Payload, &ev))
	assert.Equal(t, int64(7), ev.OrderID)
	assert.Equal(t, "cust-1", ev.CustomerID)
	assert.True(t, ev.TotalAmount.Equal(decimal.RequireFromString("25.00")))
}

func TestCreateOrderValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*orders.CreateOrderRequest)
	}{
		{"missing customer id", func(r *orders.CreateOrderRequest) { r.CustomerID = "" }},
		{"empty item list", func(r *orders.CreateOrderRequest) { r.Items = nil }},
		{"zero quantity", func(r *orders.CreateOrderRequest) { r.Items[0].Quantity = 0 }},
		{"zero unit price", func(r *orders.CreateOrderRequest) { r.Items[0].UnitPrice = decimal.Zero }},
		{"negative unit price", func(r *orders.CreateOrderRequest) { r.Items[0].UnitPrice = decimal.RequireFromString("-1.00") }},
		{"negative discount", func(r *orders.CreateOrderRequest) { r.Items[0].DiscountAmount = decimal.RequireFromString("-1.00") }},
		{"missing shipping city", func(r *orders.CreateOrderRequest) { r.ShippingAddress.City = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockStore)
			pub := new(mocks.MockPublisher)
			svc, _ := newService(store, pub, nil)

			req := validRequest()
			tt.mutate(req)

			_, err := svc.CreateOrder(context.Background(), req, "10.0.0.1", "user-1")
			assert.ErrorIs(t, err, orders.ErrValidation)

			// rejected before any side effect
			store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrderItemDiscountClampsLineAtZero(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	var saved *orders.Order
	store.On("Save", mock.Anything, mock.AnythingOfType("*orders.Order")).Return(nil).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*orders.Order)
	})
	pub.On("Publish", orders.TopicOrderCreated, mock.Anything, mock.Anything).Return()

	req := validRequest()
	req.Items[0].DiscountAmount = decimal.RequireFromString("100.00") // exceeds 2 x 10.00

	svc, _ := newService(store, pub, nil)
	resp, err := svc.CreateOrder(context.Background(), req, "10.0.0.1", "user-1")
	require.NoError(t, err)

	// clamped line contributes zero; remaining item is 5.00
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("5.00")), "total %s", resp.TotalAmount)
	assert.False(t, saved.TotalAmount.IsNegative())
}

func TestCreateOrderScreeningLogsSecurityEvents(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return()

	// 101 duplicate items at 200.00 trips both screening checks
	// (excessive items, value over 10000) and every anomaly weight.
	req := validRequest()
	req.Items = nil
	for i := 0; i < 101; i++ {
		req.Items = append(req.Items, orders.ItemRequest{
			ProductID:   "P1", // every id duplicated
			ProductName: "Widget",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("200.00"),
		})
	}

	svc, seclog := newService(store, pub, nil)
	_, err := svc.CreateOrder(context.Background(), req, "10.9.9.9", "user-7")
	require.NoError(t, err)

	snap := seclog.Metrics()
	assert.Equal(t, int64(1), snap.TypeCounts["excessive_order_items"])
	assert.Equal(t, int64(1), snap.TypeCounts["high_value_order"])
	// 0.3 + 0.2 + 0.2 = 0.7 stays under the high-anomaly threshold
	assert.Zero(t, snap.TypeCounts["high_order_anomaly"])
	assert.Equal(t, int64(2), snap.SeverityCounts[security.SeverityMedium])
}

func TestGetOrderByNumberCacheMissPopulates(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)
	cache := new(mocks.MockCache)

	order := &orders.Order{
		ID:          1,
		OrderNumber: "ORD-1-001",
		CustomerID:  "cust-1",
		Status:      orders.StatusPending,
		TotalAmount: decimal.RequireFromString("25.00"),
		CreatedAt:   time.Now().UTC(),
	}

	cache.On("Get", mock.Anything, "ORD-1-001").Return("", nil)
	store.On("FindByOrderNumber", mock.Anything, "ORD-1-001").Return(order, nil)
	cache.On("Set", mock.Anything, "ORD-1-001", mock.AnythingOfType("string")).Return(nil)

	svc, _ := newService(store, pub, cache)
	resp, err := svc.GetOrderByNumber(context.Background(), "ORD-1-001")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-001", resp.OrderNumber)

	cache.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestGetOrderByNumberCacheHitSkipsStore(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)
	cache := new(mocks.MockCache)

	cached, _ := json.Marshal(orders.OrderResponse{OrderNumber: "ORD-1-001", Status: orders.StatusShipped})
	cache.On("Get", mock.Anything, "ORD-1-001").Return(string(cached), nil)

	svc, _ := newService(store, pub, cache)
	resp, err := svc.GetOrderByNumber(context.Background(), "ORD-1-001")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, resp.Status)

	store.AssertNotCalled(t, "FindByOrderNumber", mock.Anything, mock.Anything)
}

func TestGetOrderByNumberNotFound(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	store.On("FindByOrderNumber", mock.Anything, "ORD-missing").Return(nil, orders.ErrNotFound)

	svc, _ := newService(store, pub, nil)
	_, err := svc.GetOrderByNumber(context.Background(), "ORD-missing")
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)
	cache := new(mocks.MockCache)

	order := &orders.Order{
		ID:          5,
		OrderNumber: "ORD-5-005",
		CustomerID:  "cust-1",
		Status:      orders.StatusShipped,
		TotalAmount: decimal.RequireFromString("99.00"),
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
	}

	store.On("FindByOrderNumber", mock.Anything, "ORD-5-005").Return(order, nil)
	store.On("Save", mock.Anything, order).Return(nil)

	var published []byte
	pub.On("Publish", orders.TopicOrderStatusChanged, mock.Anything, mock.Anything).Return().Run(func(args mock.Arguments) {
		published = args.Get(2).([]byte)
	})
	cache.On("Del", mock.Anything, "ORD-5-005").Return(nil)

	svc, _ := newService(store, pub, cache)
	resp, err := svc.UpdateStatus(context.Background(), "ORD-5-005", orders.StatusDelivered, "")
	require.NoError(t, err)

	assert.Equal(t, orders.StatusDelivered, resp.Status)
	require.NotNil(t, resp.DeliveredAt)
	require.NotNil(t, resp.UpdatedAt)

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(published, &env))
	var ev orders.OrderStatusChangedEvent
	require.NoError(t, json.Unmarshal(env.Payload, &ev))
	assert.Equal(t, orders.StatusShipped, ev.PreviousStatus)
	assert.Equal(t, orders.StatusDelivered, ev.NewStatus)

	cache.AssertExpectations(t)
}

func TestUpdateStatusDeliveredAtStampedOnce(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	delivered := time.Now().UTC().Add(-24 * time.Hour)
	order := &orders.Order{
		ID:          5,
		OrderNumber: "ORD-5-005",
		Status:      orders.StatusDelivered,
		DeliveredAt: &delivered,
		CreatedAt:   time.Now().UTC().Add(-48 * time.Hour),
	}

	store.On("FindByOrderNumber", mock.Anything, "ORD-5-005").Return(order, nil)
	store.On("Save", mock.Anything, order).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return()

	svc, _ := newService(store, pub, nil)
	resp, err := svc.UpdateStatus(context.Background(), "ORD-5-005", orders.StatusDelivered, "")
	require.NoError(t, err)

	assert.True(t, resp.DeliveredAt.Equal(delivered), "delivered timestamp must not move")
}

func TestUpdateStatusNotFound(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	store.On("FindByOrderNumber", mock.Anything, "ORD-missing").Return(nil, orders.ErrNotFound)

	svc, _ := newService(store, pub, nil)
	_, err := svc.UpdateStatus(context.Background(), "ORD-missing", orders.StatusShipped, "")
	assert.ErrorIs(t, err, orders.ErrNotFound)

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	order := &orders.Order{
		ID:          9,
		OrderNumber: "ORD-9-009",
		Status:      orders.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	store.On("FindByOrderNumber", mock.Anything, "ORD-9-009").Return(order, nil)
	store.On("Save", mock.Anything, order).Return(nil)
	pub.On("Publish", orders.TopicOrderStatusChanged, mock.Anything, mock.Anything).Return()

	svc, _ := newService(store, pub, nil)
	resp, err := svc.CancelOrder(context.Background(), "ORD-9-009", "out of stock")
	require.NoError(t, err)

	assert.Equal(t, orders.StatusCancelled, resp.Status)
	assert.Equal(t, "Cancelled: out of stock", resp.Notes)
}

func TestAnalyticsScenario(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	window := []orders.Order{
		{Status: orders.StatusDelivered, TotalAmount: decimal.RequireFromString("100.00")},
		{Status: orders.StatusDelivered, TotalAmount: decimal.RequireFromString("50.00")},
		{Status: orders.StatusCancelled, TotalAmount: decimal.RequireFromString("1000.00")},
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	store.On("FindByDateRange", mock.Anything, start, end).Return(window, nil)

	svc, _ := newService(store, pub, nil)
	a, err := svc.Analytics(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(3), a.TotalOrders)
	assert.True(t, a.TotalRevenue.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, int64(2), a.StatusBreakdown[orders.StatusDelivered])
}

func TestEnhancedAnalyticsIncludesSecuritySnapshot(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	window := make([]orders.Order, 10)
	for i := range window {
		window[i] = orders.Order{Status: orders.StatusDelivered, TotalAmount: decimal.RequireFromString("1500.00")}
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	store.On("FindByDateRange", mock.Anything, start, end).Return(window, nil)

	svc, seclog := newService(store, pub, nil)
	seclog.Record("high_value_order", "1.2.3.4", "u1", "big order", security.SeverityMedium)

	a, err := svc.EnhancedAnalytics(context.Background(), start, end)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, a.AnomalyScore, 1e-9) // all orders high-value
	assert.Equal(t, int64(1), a.SecurityMetrics.TypeCounts["high_value_order"])
	require.Len(t, a.RecentSecurityEvents, 1)
	assert.Equal(t, "high_value_order", a.RecentSecurityEvents[0].EventType)
}

func TestListOrdersByAmountRange(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	min := decimal.RequireFromString("10.00")
	max := decimal.RequireFromString("100.00")
	found := []orders.Order{
		{OrderNumber: "ORD-1-001", TotalAmount: decimal.RequireFromString("25.00")},
		{OrderNumber: "ORD-1-002", TotalAmount: decimal.RequireFromString("99.99")},
	}
	store.On("FindByAmountRange", mock.Anything, min, max).Return(found, nil)

	svc, _ := newService(store, pub, nil)
	resp, err := svc.ListOrdersByAmountRange(context.Background(), min, max)
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, "ORD-1-001", resp[0].OrderNumber)
}

func TestListOrdersByAmountRangeInverted(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	svc, _ := newService(store, pub, nil)
	_, err := svc.ListOrdersByAmountRange(context.Background(),
		decimal.RequireFromString("100.00"), decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, orders.ErrValidation)
	store.AssertNotCalled(t, "FindByAmountRange", mock.Anything, mock.Anything, mock.Anything)
}

func TestCountCustomerOrders(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)
	store.On("CountByCustomerAndStatus", mock.Anything, "CUST-1", orders.StatusPending).Return(int64(4), nil)

	svc, _ := newService(store, pub, nil)
	n, err := svc.CountCustomerOrders(context.Background(), "CUST-1", orders.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = svc.CountCustomerOrders(context.Background(), "CUST-1", orders.Status("SHOUTING"))
	require.ErrorIs(t, err, orders.ErrValidation)
}

func TestRevenueSince(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)

	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.On("RevenueSince", mock.Anything, since).Return(decimal.RequireFromString("1234.56"), nil)

	svc, _ := newService(store, pub, nil)
	revenue, err := svc.RevenueSince(context.Background(), since)
	require.NoError(t, err)
	assert.True(t, revenue.Equal(decimal.RequireFromString("1234.56")))
}

func TestGetOrderByNumberWrapsStoreError(t *testing.T) {
	store := new(mocks.MockStore)
	pub := new(mocks.MockPublisher)
	boom := errors.New("connection reset")
	store.On("FindByOrderNumber", mock.Anything, "ORD-1-001").Return(nil, boom)

	svc, _ := newService(store, pub, nil)
	_, err := svc.GetOrderByNumber(context.Background(), "ORD-1-001")
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "get order")
}
