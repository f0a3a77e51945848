package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/domain/repository"
)

const keyPrefix = "refund:latest:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisRefundCache stores latest refund views in Redis with a fixed TTL.
type RedisRefundCache struct {
	client redisClient
	ttl    time.Duration
}

var _ repository.RefundCache = (*RedisRefundCache)(nil)

// NewRedisRefundCache creates a cache bound to the Redis server at addr.
func NewRedisRefundCache(addr, password string, db int, ttl time.Duration) *RedisRefundCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRefundCache{client: rdb, ttl: ttl}
}

type cachedRefund struct {
	TaxYear              int                `json:"taxYear"`
	Status               model.RefundStatus `json:"status"`
	LastUpdatedAt        time.Time          `json:"lastUpdatedAt"`
	ExpectedAmount       *float64           `json:"expectedAmount,omitempty"`
	TrackingID           *string            `json:"trackingId,omitempty"`
	AvailableAtEstimated *time.Time         `json:"availableAtEstimated,omitempty"`
	AIExplanation        *string            `json:"aiExplanation,omitempty"`
}

func key(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

// Get returns the cached view; the boolean is false on a miss.
func (c *RedisRefundCache) Get(ctx context.Context, userID int64) (*model.RefundView, bool, error) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var entry cachedRefund
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}

	return &model.RefundView{
		TaxYear:              entry.TaxYear,
		Status:               entry.Status,
		LastUpdatedAt:        entry.LastUpdatedAt,
		ExpectedAmount:       entry.ExpectedAmount,
		TrackingID:           entry.TrackingID,
		AvailableAtEstimated: entry.AvailableAtEstimated,
		AIExplanation:        entry.AIExplanation,
	}, true, nil
}

func (c *RedisRefundCache) Set(ctx context.Context, userID int64, view *model.RefundView) error {
	if view == nil {
		return nil
	}
	payload, err := json.Marshal(cachedRefund{
		TaxYear:              view.TaxYear,
		Status:               view.Status,
		LastUpdatedAt:        view.LastUpdatedAt,
		ExpectedAmount:       view.ExpectedAmount,
		TrackingID:           view.TrackingID,
		AvailableAtEstimated: view.AvailableAtEstimated,
		AIExplanation:        view.AIExplanation,
	})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(userID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisRefundCache) Delete(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *RedisRefundCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (c *RedisRefundCache) Close() error {
	return c.client.Close()
}

// NopRefundCache is used when no Redis address is configured; every lookup misses.
type NopRefundCache struct{}

var _ repository.RefundCache = NopRefundCache{}

func (NopRefundCache) Get(context.Context, int64) (*model.RefundView, bool, error) {
	return nil, false, nil
}

func (NopRefundCache) Set(context.Context, int64, *model.RefundView) error { return nil }

func (NopRefundCache) Delete(context.Context, int64) error { return nil }
