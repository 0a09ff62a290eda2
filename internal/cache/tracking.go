package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusvoice/complaint-service/internal/domain"
)

// TrackingCache stores public tracking views by code.
type TrackingCache interface {
	Get(ctx context.Context, code string) (*domain.TrackingView, bool, error)
	Set(ctx context.Context, view *domain.TrackingView) error
	Invalidate(ctx context.Context, code string) error
}

const trackingKeyPrefix = "tracking:"

func trackingKey(code string) string {
	return trackingKeyPrefix + code
}

type redisTrackingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTrackingCache returns a Redis-backed cache. A non-positive ttl disables caching.
func NewRedisTrackingCache(client *redis.Client, ttl time.Duration) TrackingCache {
	if client == nil || ttl <= 0 {
		return NoopTrackingCache{}
	}
	return &redisTrackingCache{client: client, ttl: ttl}
}

func (c *redisTrackingCache) Get(ctx context.Context, code string) (*domain.TrackingView, bool, error) {
	raw, err := c.client.Get(ctx, trackingKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var view domain.TrackingView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, false, err
	}
	return &view, true, nil
}

func (c *redisTrackingCache) Set(ctx context.Context, view *domain.TrackingView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, trackingKey(view.TrackingCode), raw, c.ttl).Err()
}

func (c *redisTrackingCache) Invalidate(ctx context.Context, code string) error {
	return c.client.Del(ctx, trackingKey(code)).Err()
}

// NoopTrackingCache never stores anything.
type NoopTrackingCache struct{}

func (NoopTrackingCache) Get(context.Context, string) (*domain.TrackingView, bool, error) {
	return nil, false, nil
}

func (NoopTrackingCache) Set(context.Context, *domain.TrackingView) error { return nil }

func (NoopTrackingCache) Invalidate(context.Context, string) error { return nil }
