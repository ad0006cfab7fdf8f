package services

import (
	"context"
	"errors"
	"time"

	"storefront/internal/caching"
	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog"
)

// OrderQueryServiceInterface defines the read side of orders
type OrderQueryServiceInterface interface {
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
}

type orderQueryService struct {
	store    repositories.Store
	cache    caching.CacheService
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewOrderQueryService creates the read service. A nil cache or a zero TTL
// disables caching.
func NewOrderQueryService(store repositories.Store, cache caching.CacheService, cacheTTL time.Duration, logger zerolog.Logger) OrderQueryServiceInterface {
	if cacheTTL <= 0 {
		cache = nil
	}
	return &orderQueryService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "order_query_service").Logger(),
	}
}

// GetOrder returns the order with its items, each item's product and the
// owning user. Stored values are returned as is; nothing is recomputed.
// Only the items may come from the cache. The order row, its owner and the
// products are read on every call.
func (s *orderQueryService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.Orders().GetWithUser(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound("Order not found")
		}
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("get order failed")
		return nil, common.StoreFailure("get order", err)
	}

	if items := s.cachedItems(ctx, orderID); items != nil {
		if err := s.attachProducts(ctx, items); err != nil {
			s.logger.Error().Err(err).Int64("order_id", orderID).Msg("get order products failed")
			return nil, common.StoreFailure("get order products", err)
		}
		order.Items = items
		return order, nil
	}

	order.Items, err = s.store.OrderItems().ListWithProducts(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("get order items failed")
		return nil, common.StoreFailure("get order items", err)
	}

	if s.cache != nil {
		if err := s.cache.SetOrderItems(ctx, orderID, order.Items, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("order cache write failed")
		}
	}
	return order, nil
}

func (s *orderQueryService) cachedItems(ctx context.Context, orderID int64) []*models.OrderItem {
	if s.cache == nil {
		return nil
	}
	items, err := s.cache.GetOrderItems(ctx, orderID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("order cache read failed")
		return nil
	}
	return items
}

func (s *orderQueryService) attachProducts(ctx context.Context, items []*models.OrderItem) error {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	products, err := s.store.Products().ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, item := range items {
		item.Product = products[item.ProductID]
	}
	return nil
}

// ListOrders returns every order with its owning user, ordered by id.
func (s *orderQueryService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	orders, err := s.store.Orders().ListWithUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list orders failed")
		return nil, common.StoreFailure("list orders", err)
	}
	return orders, nil
}
