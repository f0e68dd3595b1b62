package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory builds the store selected by idempotency.driver
type IdempotencyStoreFactory struct {
	cfg                   config.IdempotencyConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	pingTimeout           time.Duration
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the factory logger
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable redis degrades to the
// in-memory store instead of failing. Enabled by default.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a factory
func NewIdempotencyStoreFactory(cfg config.IdempotencyConfig, redisCfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		cfg:                   cfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		pingTimeout:           5 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the configured store
func (f *IdempotencyStoreFactory) Create() (shared.IdempotencyStore, error) {
	switch f.cfg.Driver {
	case "", "memory":
		f.logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	case "bolt":
		store, err := NewBoltIdempotencyStore(f.cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Using bolt idempotency store", zap.String("path", f.cfg.BoltPath))
		return store, nil
	case "redis":
		return f.createRedis()
	default:
		return nil, fmt.Errorf("unknown idempotency driver %q", f.cfg.Driver)
	}
}

func (f *IdempotencyStoreFactory) createRedis() (shared.IdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), f.pingTimeout)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err == nil {
		f.logger.Info("Using redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisIdempotencyStore(client, f.cfg.KeyPrefix), nil
	}
	_ = client.Close()

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; duplicates across instances are possible",
		zap.String("addr", f.redisConfig.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
