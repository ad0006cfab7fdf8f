package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService caches the line items of an order. Items never change after
// checkout, so a cached copy can only go away, never go stale. Mutable data
// (status, owner, product stock and price) is always read from the database.
type CacheService interface {
	// GetOrderItems returns nil, nil on a cache miss.
	GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	SetOrderItems(ctx context.Context, orderID int64, items []*models.OrderItem, ttl time.Duration) error
	DeleteOrderItems(ctx context.Context, orderID int64) error
	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

// NewRedisClient builds a client from either host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if password != "" {
			parsed.Password = password
		}
		opts = parsed
	}
	return redis.NewClient(opts), nil
}

func orderItemsKey(orderID int64) string {
	return fmt.Sprintf("order:items:%d", orderID)
}

func (r *redisCacheService) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	data, err := r.client.Get(ctx, orderItemsKey(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	items := []*models.OrderItem{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SetOrderItems stores the items without their embedded products.
func (r *redisCacheService) SetOrderItems(ctx context.Context, orderID int64, items []*models.OrderItem, ttl time.Duration) error {
	stripped := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		cp := *item
		cp.Product = nil
		stripped = append(stripped, cp)
	}
	data, err := json.Marshal(stripped)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, orderItemsKey(orderID), data, ttl).Err()
}

func (r *redisCacheService) DeleteOrderItems(ctx context.Context, orderID int64) error {
	return r.client.Del(ctx, orderItemsKey(orderID)).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
