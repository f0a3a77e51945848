package config

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module exposes configuration loader for fx graphs and logs the effective settings once.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(logEffective),
)

func logEffective(cfg *Config, logger *slog.Logger) {
	logger.Info("configuration loaded",
		"address", cfg.RunAddress,
		"token_strategy", cfg.TokenStrategy,
		"redis_cache", cfg.RedisAddress != "",
		"tax_year", cfg.TaxYear,
		"demo_enabled", cfg.DemoEnabled,
	)
	if cfg.JWTSecret == defaultJWTSecret {
		logger.Warn("using built-in token secret, set JWT_SECRET or JWT_SECRET_FILE")
	}
	if cfg.DemoEnabled {
		logger.Warn("demo mode enabled, refund statuses can be simulated")
	}
}
