package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderCache holds marshaled order responses keyed by order number.
// Reads treat a missing key as a plain miss.
type OrderCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewOrderCache(rdb *redis.Client, ttl time.Duration) *OrderCache {
	if ttl <= 0 {
		ttl = TTLOrderCache
	}
	return &OrderCache{rdb: rdb, ttl: ttl}
}

func (c *OrderCache) Get(ctx context.Context, orderNumber string) (string, error) {
	v, err := c.rdb.Get(ctx, c.key(orderNumber)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (c *OrderCache) Set(ctx context.Context, orderNumber, payload string) error {
	return c.rdb.Set(ctx, c.key(orderNumber), payload, c.ttl).Err()
}

func (c *OrderCache) Del(ctx context.Context, orderNumber string) error {
	return c.rdb.Del(ctx, c.key(orderNumber)).Err()
}

func (c *OrderCache) key(orderNumber string) string {
	return fmt.Sprintf(KeyOrderResponse, orderNumber)
}
