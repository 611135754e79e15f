package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/rasyaandrean/order-service/internal/orders"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByOrderNumber(ctx context.Context, orderNumber string) (*orders.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockStore) FindByCustomer(ctx context.Context, customerID string) ([]orders.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.Order), args.Error(1)
}

func (m *MockStore) FindByStatus(ctx context.Context, status orders.Status) ([]orders.Order, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.Order), args.Error(1)
}

func (m *MockStore) FindByDateRange(ctx context.Context, start, end time.Time) ([]orders.Order, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.Order), args.Error(1)
}

func (m *MockStore) FindByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]orders.Order, error) {
	args := m.Called(ctx, min, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.Order), args.Error(1)
}

func (m *MockStore) CountByCustomerAndStatus(ctx context.Context, customerID string, status orders.Status) (int64, error) {
	args := m.Called(ctx, customerID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) RevenueSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, o *orders.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, key, value []byte) {
	m.Called(topic, key, value)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, orderNumber string) (string, error) {
	args := m.Called(ctx, orderNumber)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, orderNumber, payload string) error {
	args := m.Called(ctx, orderNumber, payload)
	return args.Error(0)
}

func (m *MockCache) Del(ctx context.Context, orderNumber string) error {
	args := m.Called(ctx, orderNumber)
	return args.Error(0)
}

type MockDedup struct {
	mock.Mock
}

func (m *MockDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDedup) Mark(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}
