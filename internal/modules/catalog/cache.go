package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProductCache holds rendered product views. Stock shown from the cache may
// lag; availability checks always read the store.
type ProductCache interface {
	Get(ctx context.Context, id int64) (*ProductView, bool, error)
	Set(ctx context.Context, view *ProductView) error
	Invalidate(ctx context.Context, id int64) error
}

func cacheKey(id int64) string {
	return "catalog:product:" + strconv.FormatInt(id, 10)
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache stores product views as JSON under catalog:product:<id>.
func NewRedisCache(client *redis.Client, ttl time.Duration) ProductCache {
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, id int64) (*ProductView, bool, error) {
	value, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	view := &ProductView{}
	if err := json.Unmarshal(value, view); err != nil {
		return nil, false, err
	}
	return view, true, nil
}

func (c *redisCache) Set(ctx context.Context, view *ProductView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(view.ID), payload, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, cacheKey(id)).Err()
}

// NopCache never hits. Used when REDIS_URL is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, int64) (*ProductView, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, *ProductView) error                { return nil }
func (NopCache) Invalidate(context.Context, int64) error                { return nil }
