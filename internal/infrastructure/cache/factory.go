package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/webhook"
	"github.com/storesync/backend/internal/infrastructure/config"
)

// DedupStoreFactory creates dedup stores based on configuration
type DedupStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DedupStoreFactoryOption is a functional option for configuring the factory
type DedupStoreFactoryOption func(*DedupStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DedupStoreFactoryOption {
	return func(f *DedupStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when
// Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) DedupStoreFactoryOption {
	return func(f *DedupStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDedupStoreFactory creates a new factory
func NewDedupStoreFactory(cfg config.RedisConfig, opts ...DedupStoreFactoryOption) *DedupStoreFactory {
	f := &DedupStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based dedup store
func (f *DedupStoreFactory) CreateRedisStore() (webhook.DedupStore, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	store, err := NewRedisDedupStore(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis dedup store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore creates an in-memory dedup store.
// WARNING: in-memory stores do not share state across process instances,
// so duplicate deliveries may reach the ledger in distributed deployments.
// The ledger's unique index still catches them.
func (f *DedupStoreFactory) CreateInMemoryStore() webhook.DedupStore {
	return NewInMemoryDedupStore()
}

// CreateStore creates a dedup store based on whether Redis is available.
// It tries Redis first and falls back to in-memory when allowed.
func (f *DedupStoreFactory) CreateStore() (webhook.DedupStore, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis webhook dedup store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for webhook dedup but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory webhook dedup store",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
