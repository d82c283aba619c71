package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storesync/backend/internal/domain/webhook"
)

// RedisDedupStore implements DedupStore using Redis.
// This is suitable for distributed deployments where multiple instances
// receive deliveries for the same stores.
type RedisDedupStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisDedupStore creates a new Redis-based dedup store
func NewRedisDedupStore(cfg RedisConfig) (*RedisDedupStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisDedupStore{
		client:    client,
		keyPrefix: "webhook:dedup:",
	}, nil
}

// NewRedisDedupStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisDedupStoreWithClient(client *redis.Client, keyPrefix string) *RedisDedupStore {
	if keyPrefix == "" {
		keyPrefix = "webhook:dedup:"
	}
	return &RedisDedupStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkSeen marks an idempotency key as seen with a TTL.
// Uses SETNX so exactly one concurrent caller observes true.
func (s *RedisDedupStore) MarkSeen(ctx context.Context, idempotencyKey string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + idempotencyKey

	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery as seen: %w", err)
	}

	return result, nil
}

// IsSeen checks whether an idempotency key is currently marked
func (s *RedisDedupStore) IsSeen(ctx context.Context, idempotencyKey string) (bool, error) {
	key := s.keyPrefix + idempotencyKey

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}

	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisDedupStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisDedupStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisDedupStore implements DedupStore
var _ webhook.DedupStore = (*RedisDedupStore)(nil)
