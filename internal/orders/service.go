package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/rasyaandrean/order-service/internal/metrics"
	"github.com/rasyaandrean/order-service/internal/security"
)

var (
	ErrNotFound   = errors.New("order not found")
	ErrValidation = errors.New("invalid order request")
)

// Store is the persistence collaborator. Lookups by number return
// ErrNotFound on a miss; Save assigns ids on first write. Per-row
// atomicity and order-number uniqueness are the store's responsibility.
type Store interface {
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByCustomer(ctx context.Context, customerID string) ([]Order, error)
	FindByStatus(ctx context.Context, status Status) ([]Order, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]Order, error)
	FindByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]Order, error)
	CountByCustomerAndStatus(ctx context.Context, customerID string, status Status) (int64, error)
	RevenueSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	Save(ctx context.Context, o *Order) error
}

// Publisher is fire-and-forget; delivery errors are the producer's to log.
type Publisher interface {
	Publish(topic string, key, value []byte)
}

// Cache holds marshaled order responses keyed by order number.
type Cache interface {
	Get(ctx context.Context, orderNumber string) (string, error)
	Set(ctx context.Context, orderNumber, payload string) error
	Del(ctx context.Context, orderNumber string) error
}

// Fraud-check thresholds, separate from the anomaly weights.
var (
	excessiveItemCount = 100
	highValueThreshold = decimal.NewFromInt(10000)
)

const anomalyAlertScore = 0.8

type Service struct {
	store    Store
	pub      Publisher
	cache    Cache
	seclog   *security.Log
	metrics  *metrics.Metrics
	validate *validator.Validate
	name     string
}

// NewService wires the lifecycle service. cache may be nil, in which case
// reads always go to the store.
func NewService(store Store, pub Publisher, cache Cache, seclog *security.Log, m *metrics.Metrics, serviceName string) *Service {
	return &Service{
		store:    store,
		pub:      pub,
		cache:    cache,
		seclog:   seclog,
		metrics:  m,
		validate: validator.New(),
		name:     serviceName,
	}
}

// CreateOrder validates and scores the request, builds the order, persists
// it, and publishes an OrderCreated event. Validation failures happen
// before any side effect.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest, sourceIP, userID string) (*OrderResponse, error) {
	timer := prometheus.NewTimer(s.metrics.OrderProcessingDuration)
	defer timer.ObserveDuration()

	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	slog.Info("creating order", "customer_id", req.CustomerID, "items", len(req.Items))

	s.screenRequest(req, sourceIP, userID)

	if score := ScoreRequest(req); score > anomalyAlertScore {
		s.seclog.Record("high_order_anomaly", sourceIP, userID,
			fmt.Sprintf("High anomaly score: %.2f for customer %s", score, req.CustomerID),
			security.SeverityHigh)
		s.metrics.AnomaliesDetected.Inc()
	}

	order := buildOrder(req)
	if err := s.store.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publishEvent(TopicOrderCreated, order.OrderNumber, EventOrderCreated, OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Timestamp:   time.Now().UTC(),
	})
	s.metrics.OrdersCreated.Inc()

	slog.Info("order created", "order_number", order.OrderNumber, "total", order.TotalAmount)

	resp := toOrderResponse(order)
	return &resp, nil
}

// GetOrderByNumber is a cache-aside read: consult the cache, fall through
// to the store on a miss, then populate the cache.
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*OrderResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, orderNumber); err == nil && cached != "" {
			var resp OrderResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	order, err := s.store.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	resp := toOrderResponse(order)
	if s.cache != nil {
		if b, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, orderNumber, string(b)); err != nil {
				slog.Warn("order cache set failed", "order_number", orderNumber, "err", err)
			}
		}
	}
	return &resp, nil
}

func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID string) ([]OrderResponse, error) {
	found, err := s.store.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders by customer: %w", err)
	}
	return toResponses(found), nil
}

func (s *Service) ListOrdersByStatus(ctx context.Context, status Status) ([]OrderResponse, error) {
	found, err := s.store.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	return toResponses(found), nil
}

func (s *Service) ListOrdersByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]OrderResponse, error) {
	if min.GreaterThan(max) {
		return nil, fmt.Errorf("%w: min amount exceeds max amount", ErrValidation)
	}
	found, err := s.store.FindByAmountRange(ctx, min, max)
	if err != nil {
		return nil, fmt.Errorf("list orders by amount range: %w", err)
	}
	return toResponses(found), nil
}

func (s *Service) CountCustomerOrders(ctx context.Context, customerID string, status Status) (int64, error) {
	if !knownStatuses[status] {
		return 0, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	n, err := s.store.CountByCustomerAndStatus(ctx, customerID, status)
	if err != nil {
		return 0, fmt.Errorf("count customer orders: %w", err)
	}
	return n, nil
}

// RevenueSince sums delivered-order totals created at or after the cutoff.
func (s *Service) RevenueSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	revenue, err := s.store.RevenueSince(ctx, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("revenue since: %w", err)
	}
	return revenue, nil
}

// UpdateStatus sets a new status, stamps deliveredAt on the first
// transition into DELIVERED, persists, publishes the change, and evicts the
// cached response for the order number.
func (s *Service) UpdateStatus(ctx context.Context, orderNumber string, newStatus Status, notes string) (*OrderResponse, error) {
	timer := prometheus.NewTimer(s.metrics.OrderProcessingDuration)
	defer timer.ObserveDuration()

	if !knownStatuses[newStatus] {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	order, err := s.store.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = newStatus
	if notes != "" {
		order.Notes = notes
	}
	if newStatus == StatusDelivered && order.DeliveredAt == nil {
		now := time.Now().UTC()
		order.DeliveredAt = &now
	}
	now := time.Now().UTC()
	order.UpdatedAt = &now

	if err := s.store.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.publishEvent(TopicOrderStatusChanged, order.OrderNumber, EventOrderStatusChanged, OrderStatusChangedEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: previous,
		NewStatus:      newStatus,
		Timestamp:      now,
	})
	if newStatus == StatusCancelled {
		s.metrics.OrdersCancelled.Inc()
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, orderNumber); err != nil {
			slog.Warn("order cache evict failed", "order_number", orderNumber, "err", err)
		}
	}

	slog.Info("order status updated", "order_number", orderNumber, "previous", previous, "status", newStatus)

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderNumber, reason string) (*OrderResponse, error) {
	return s.UpdateStatus(ctx, orderNumber, StatusCancelled, "Cancelled: "+reason)
}

// Analytics aggregates the orders created inside [start, end].
func (s *Service) Analytics(ctx context.Context, start, end time.Time) (*Analytics, error) {
	window, err := s.store.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("order analytics: %w", err)
	}
	a := ComputeAnalytics(window, start, end)
	return &a, nil
}

// EnhancedAnalytics extends Analytics with the security snapshot, the ten
// most recent security events, and a period-level anomaly score.
func (s *Service) EnhancedAnalytics(ctx context.Context, start, end time.Time) (*EnhancedAnalytics, error) {
	window, err := s.store.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("enhanced order analytics: %w", err)
	}
	return &EnhancedAnalytics{
		Analytics:            ComputeAnalytics(window, start, end),
		SecurityMetrics:      s.seclog.Metrics(),
		RecentSecurityEvents: s.seclog.Recent(10),
		AnomalyScore:         ScorePeriod(window),
	}, nil
}

func (s *Service) validateCreate(req *CreateOrderRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for i := range req.Items {
		it := &req.Items[i]
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %s: quantity must be positive", ErrValidation, it.ProductID)
		}
		if !it.UnitPrice.IsPositive() {
			return fmt.Errorf("%w: item %s: unit price must be positive", ErrValidation, it.ProductID)
		}
		if it.DiscountAmount.IsNegative() {
			return fmt.Errorf("%w: item %s: discount must not be negative", ErrValidation, it.ProductID)
		}
	}
	return nil
}

// screenRequest records suspicious-but-allowed patterns; it never rejects.
func (s *Service) screenRequest(req *CreateOrderRequest, sourceIP, userID string) {
	if len(req.Items) > excessiveItemCount {
		s.seclog.Record("excessive_order_items", sourceIP, userID,
			fmt.Sprintf("Order with %d items", len(req.Items)), security.SeverityMedium)
	}
	if requestValue(req.Items).GreaterThan(highValueThreshold) {
		s.seclog.Record("high_value_order", sourceIP, userID,
			"Order value: "+requestValue(req.Items).String(), security.SeverityMedium)
	}
}

func (s *Service) publishEvent(topic, orderNumber, eventType string, payload any) {
	env := NewEnvelope(eventType, s.name, orderNumber, payload)
	s.pub.Publish(topic, PartitionKey(orderNumber), mustJSON(env))
}

func buildOrder(req *CreateOrderRequest) *Order {
	items := make([]OrderItem, 0, len(req.Items))
	for i := range req.Items {
		ir := &req.Items[i]
		items = append(items, OrderItem{
			ProductID:      ir.ProductID,
			ProductName:    ir.ProductName,
			Quantity:       ir.Quantity,
			UnitPrice:      ir.UnitPrice,
			DiscountAmount: ir.DiscountAmount,
			Specifications: ir.Specifications,
		})
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	return &Order{
		OrderNumber:     GenerateOrderNumber(),
		CustomerID:      req.CustomerID,
		Status:          StatusPending,
		TotalAmount:     sumItemTotals(items),
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Notes:           req.Notes,
		Tags:            dedupeTags(req.Tags),
		CreatedAt:       time.Now().UTC(),
	}
}

func toResponses(found []Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(found))
	for i := range found {
		out = append(out, toOrderResponse(&found[i]))
	}
	return out
}
