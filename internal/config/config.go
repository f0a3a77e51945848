package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	RedisAddress       string
	RedisPassword      string
	RedisDB            int
	JWTSecret          string
	TokenStrategy      string
	TokenTTL           time.Duration
	DemoEnabled        bool
	RefundCacheTTL     time.Duration
	TaxYear            int
	ShutdownTimeout    time.Duration
	LogLevel           string
	ETARefreshInterval time.Duration
	ETABatchSize       int
	WorkerPoolSize     int
}

const (
	TokenStrategyJWT  = "jwt"
	TokenStrategyHMAC = "hmac"
)

const (
	defaultRunAddress         = ":8080"
	defaultJWTSecret          = "change-me-in-production"
	defaultTokenStrategy      = TokenStrategyJWT
	defaultTokenTTL           = 24 * time.Hour
	defaultRefundCacheTTL     = 60 * time.Second
	defaultTaxYear            = 2025
	defaultShutdownTimeout    = 10 * time.Second
	defaultLogLevel           = "info"
	defaultETARefreshInterval = time.Minute
	defaultETABatchSize       = 32
	defaultWorkerPoolSize     = 4
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		RedisAddress:       getString(lookup, "REDIS_ADDRESS", ""),
		RedisPassword:      getString(lookup, "REDIS_PASSWORD", ""),
		RedisDB:            getInt(lookup, "REDIS_DB", 0),
		JWTSecret:          getString(lookup, "JWT_SECRET", defaultJWTSecret),
		TokenStrategy:      getString(lookup, "TOKEN_STRATEGY", defaultTokenStrategy),
		TokenTTL:           getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		DemoEnabled:        getBool(lookup, "DEMO_ENABLED", true),
		RefundCacheTTL:     getDuration(lookup, "REFUND_CACHE_TTL", defaultRefundCacheTTL),
		TaxYear:            getInt(lookup, "TAX_YEAR", defaultTaxYear),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:           getString(lookup, "LOG_LEVEL", defaultLogLevel),
		ETARefreshInterval: getDuration(lookup, "ETA_REFRESH_INTERVAL", defaultETARefreshInterval),
		ETABatchSize:       getInt(lookup, "ETA_BATCH_SIZE", defaultETABatchSize),
		WorkerPoolSize:     getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
	}

	fs := flag.NewFlagSet("refundstatus", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		tokenTTLStr        = cfg.TokenTTL.String()
		cacheTTLStr        = cfg.RefundCacheTTL.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		etaIntervalStr     = cfg.ETARefreshInterval.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for the refund cache")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing auth tokens")
	fs.StringVar(&cfg.TokenStrategy, "token-strategy", cfg.TokenStrategy, "Auth token format: jwt or hmac")
	fs.StringVar(&tokenTTLStr, "token-ttl", tokenTTLStr, "Auth token lifetime")
	fs.BoolVar(&cfg.DemoEnabled, "demo", cfg.DemoEnabled, "Enable the refund simulation endpoint")
	fs.StringVar(&cacheTTLStr, "cache-ttl", cacheTTLStr, "Latest refund cache lifetime")
	fs.IntVar(&cfg.TaxYear, "tax-year", cfg.TaxYear, "Tax year served by the mock agency")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&etaIntervalStr, "eta-interval", etaIntervalStr, "Interval between ETA refresh runs")
	fs.IntVar(&cfg.ETABatchSize, "eta-batch", cfg.ETABatchSize, "Maximum refunds per ETA refresh batch")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent ETA workers")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.TokenTTL, err = time.ParseDuration(tokenTTLStr); err != nil {
		return nil, fmt.Errorf("invalid token ttl: %w", err)
	}

	if cfg.RefundCacheTTL, err = time.ParseDuration(cacheTTLStr); err != nil {
		return nil, fmt.Errorf("invalid cache ttl: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.ETARefreshInterval, err = time.ParseDuration(etaIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid eta interval: %w", err)
	}

	if secretFile, ok := lookup("JWT_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = strings.TrimSpace(string(content))
	}

	cfg.TokenStrategy = strings.ToLower(cfg.TokenStrategy)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.ETABatchSize <= 0 {
		cfg.ETABatchSize = defaultETABatchSize
	}

	if cfg.ETARefreshInterval <= 0 {
		cfg.ETARefreshInterval = defaultETARefreshInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	if cfg.RefundCacheTTL <= 0 {
		cfg.RefundCacheTTL = defaultRefundCacheTTL
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.TokenStrategy != TokenStrategyJWT && cfg.TokenStrategy != TokenStrategyHMAC {
		return nil, fmt.Errorf("unknown token strategy %q", cfg.TokenStrategy)
	}

	if cfg.TaxYear <= 2000 {
		return nil, fmt.Errorf("tax year must be after 2000, got %d", cfg.TaxYear)
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
