package cache

import (
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RecordStoreFactory creates Redis-backed idempotency record stores based on configuration
type RecordStoreFactory struct {
	redisConfig           config.RedisConfig
	retention             time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// RecordStoreFactoryOption is a functional option for configuring the factory
type RecordStoreFactoryOption func(*RecordStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RecordStoreFactoryOption {
	return func(f *RecordStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory store when Redis is unavailable.
// Default is false: a replicated deployment must not silently lose shared idempotency state.
func WithInMemoryFallback(allow bool) RecordStoreFactoryOption {
	return func(f *RecordStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithRetention sets how long records are kept
func WithRetention(retention time.Duration) RecordStoreFactoryOption {
	return func(f *RecordStoreFactory) {
		f.retention = retention
	}
}

// NewRecordStoreFactory creates a new factory
func NewRecordStoreFactory(cfg config.RedisConfig, opts ...RecordStoreFactoryOption) *RecordStoreFactory {
	f := &RecordStoreFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store, or an in-memory store when Redis is unreachable and fallback is allowed
func (f *RecordStoreFactory) CreateStore() (idempotency.RecordStore, error) {
	store, err := NewRedisRecordStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.retention)
	if err == nil {
		f.logger.Info("using Redis idempotency record store",
			zap.String("addr", f.redisConfig.Addr()),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"Replicas will not share idempotency state.",
		zap.Error(err),
	)
	return NewInMemoryRecordStore(f.retention), nil
}
