package cache

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/refundstatus/internal/config"
	"github.com/polkiloo/refundstatus/internal/domain/repository"
)

// Module provides the latest-refund cache; Redis when configured, a no-op cache otherwise.
var Module = fx.Provide(newRefundCache)

type cacheParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newRefundCache(p cacheParams) repository.RefundCache {
	if p.Config.RedisAddress == "" {
		p.Logger.Info("refund_cache_disabled")
		return NopRefundCache{}
	}

	c := NewRedisRefundCache(p.Config.RedisAddress, p.Config.RedisPassword, p.Config.RedisDB, p.Config.RefundCacheTTL)
	registerLifecycle(p.Lifecycle, c, p.Logger)
	return c
}

func registerLifecycle(lc fx.Lifecycle, c *RedisRefundCache, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.Ping(ctx); err != nil {
				logger.Warn("refund_cache_unreachable", slog.Any("error", err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
}
