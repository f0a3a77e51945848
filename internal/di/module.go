package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/refundstatus/internal/adapter/irs"
	"github.com/polkiloo/refundstatus/internal/app"
	"github.com/polkiloo/refundstatus/internal/config"
	"github.com/polkiloo/refundstatus/internal/logger"
	"github.com/polkiloo/refundstatus/internal/metrics"
	"github.com/polkiloo/refundstatus/internal/pkg/auth"
	"github.com/polkiloo/refundstatus/internal/server/http/router"
	"github.com/polkiloo/refundstatus/internal/storage/cache"
	"github.com/polkiloo/refundstatus/internal/storage/postgres"
	"github.com/polkiloo/refundstatus/internal/usecase"
)

// Module composes the refund status server. opts are appended last so callers can fx.Replace components.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		auth.Module,
		postgres.Module,
		cache.Module,
		irs.Module,
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) router.HealthChecker { return s }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
