package services

import (
	"context"
	"errors"
	"sort"

	"storefront/internal/caching"
	"storefront/internal/common"
	"storefront/internal/messaging"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderServiceInterface defines the write side of orders
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req *models.OrderCreate) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, update *models.OrderUpdate) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}

type orderService struct {
	store     repositories.Store
	cache     caching.CacheService
	publisher messaging.OrderEventPublisher
	logger    zerolog.Logger
}

// NewOrderService creates a new order service instance. cache may be nil.
func NewOrderService(store repositories.Store, cache caching.CacheService, publisher messaging.OrderEventPublisher, logger zerolog.Logger) OrderServiceInterface {
	if publisher == nil {
		publisher = messaging.NewNoopPublisher()
	}
	return &orderService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    logger.With().Str("component", "order_service").Logger(),
	}
}

// CreateOrder validates stock, computes the total, decrements inventory and
// persists the order with its items. Everything happens in one transaction:
// on any error no stock is changed and no order exists.
func (s *orderService) CreateOrder(ctx context.Context, req *models.OrderCreate) (*models.Order, error) {
	if err := validateOrderCreate(req); err != nil {
		return nil, err
	}

	var created *models.Order
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		order, err := placeOrder(ctx, tx, req)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		err = asAppError("create order", err)
		if common.IsKind(err, common.KindStoreFailure) {
			s.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("create order failed")
		}
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", created.ID).
		Int64("user_id", created.UserID).
		Str("total_amount", created.TotalAmount.String()).
		Int("items", len(created.Items)).
		Msg("order created")

	if err := s.publisher.PublishOrderCreated(ctx, created); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", created.ID).Msg("failed to publish order created event")
	}
	return created, nil
}

func validateOrderCreate(req *models.OrderCreate) error {
	if req == nil || len(req.Items) == 0 {
		return common.InvalidRequest("Order must have items")
	}
	if req.UserID <= 0 {
		return common.InvalidRequest("userId is required")
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return common.InvalidRequest("quantity for product %d must be positive", line.ProductID)
		}
	}
	return nil
}

// placeOrder runs inside the transaction. Products are locked up front in id
// order; items are then processed in request order against the locked rows,
// so a product listed twice sees the stock left by its first occurrence.
func placeOrder(ctx context.Context, tx repositories.Store, req *models.OrderCreate) (*models.Order, error) {
	if _, err := tx.Users().GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound("User %d not found", req.UserID)
		}
		return nil, common.StoreFailure("load user", err)
	}

	products, err := tx.Products().LockByIDs(ctx, distinctProductIDs(req.Items))
	if err != nil {
		return nil, common.StoreFailure("lock products", err)
	}

	total := decimal.Zero
	items := make([]*models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, common.NotFound("Product %d not found", line.ProductID)
		}
		if line.Quantity > product.Stock {
			return nil, common.InsufficientStock(product.Name)
		}

		item := &models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     product.Price,
		}
		total = total.Add(item.Subtotal())

		if err := tx.Products().DecrementStock(ctx, product.ID, line.Quantity); err != nil {
			if errors.Is(err, repositories.ErrInsufficientStock) {
				return nil, common.InsufficientStock(product.Name)
			}
			return nil, common.StoreFailure("update stock", err)
		}
		product.Stock -= line.Quantity
		items = append(items, item)
	}
	if total.GreaterThan(models.MaxOrderTotal) {
		return nil, common.InvalidRequest("Order total %s exceeds the maximum of %s", total.StringFixed(2), models.MaxOrderTotal.StringFixed(2))
	}

	order := &models.Order{
		UserID:      req.UserID,
		Status:      models.OrderStatusPending,
		TotalAmount: total,
	}
	if err := tx.Orders().Create(ctx, order); err != nil {
		return nil, common.StoreFailure("create order", err)
	}
	for _, item := range items {
		item.OrderID = order.ID
		if err := tx.OrderItems().Create(ctx, item); err != nil {
			return nil, common.StoreFailure("create order item", err)
		}
	}

	created, err := tx.Orders().GetByID(ctx, order.ID)
	if err != nil {
		return nil, common.StoreFailure("reload order", err)
	}
	created.Items, err = tx.OrderItems().ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, common.StoreFailure("reload order items", err)
	}
	return created, nil
}

func distinctProductIDs(lines []models.OrderLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// UpdateOrder changes the order status. Cancelling does not restore stock.
func (s *orderService) UpdateOrder(ctx context.Context, orderID int64, update *models.OrderUpdate) (*models.Order, error) {
	if update == nil || update.Status == nil {
		return nil, common.InvalidRequest("No updatable fields provided")
	}
	if !models.ValidOrderStatus(*update.Status) {
		return nil, common.InvalidRequest("status must be one of %s, %s, %s",
			models.OrderStatusPending, models.OrderStatusCompleted, models.OrderStatusCancelled)
	}

	order, err := s.store.Orders().UpdateStatus(ctx, orderID, *update.Status)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound("Order not found")
		}
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("update order failed")
		return nil, common.StoreFailure("update order", err)
	}
	return order, nil
}

// DeleteOrder removes the order and, by cascade, its items.
func (s *orderService) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := s.store.Orders().Delete(ctx, orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound("Order not found")
		}
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("delete order failed")
		return common.StoreFailure("delete order", err)
	}

	s.invalidate(ctx, orderID)
	return nil
}

func (s *orderService) invalidate(ctx context.Context, orderID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteOrderItems(ctx, orderID); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("failed to drop cached order items")
	}
}

// asAppError keeps service errors as they are and wraps anything else,
// such as a failed commit, as a store failure.
func asAppError(operation string, err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return common.StoreFailure(operation, err)
}
