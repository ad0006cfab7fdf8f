package services

import (
	"context"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]*models.OrderItem)
	return items, args.Error(1)
}

func (m *MockCacheService) SetOrderItems(ctx context.Context, orderID int64, items []*models.OrderItem, ttl time.Duration) error {
	args := m.Called(ctx, orderID, items, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteOrderItems(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockOrderEventPublisher struct {
	mock.Mock
}

func (m *MockOrderEventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
