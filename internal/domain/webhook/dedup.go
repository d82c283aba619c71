package webhook

import (
	"context"
	"time"
)

// DedupStore is the fast-path duplicate filter in front of the ledger.
// It answers "was this idempotency key seen recently" without a database
// round trip. The ledger's unique index remains the authority; a dedup
// miss is never an error, only a slower path.
type DedupStore interface {
	// MarkSeen marks an idempotency key as seen with a TTL.
	// Returns true if the key was newly marked, false if already present.
	MarkSeen(ctx context.Context, idempotencyKey string, ttl time.Duration) (bool, error)

	// IsSeen checks whether an idempotency key is currently marked
	IsSeen(ctx context.Context, idempotencyKey string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// DedupConfig holds configuration for the duplicate filter
type DedupConfig struct {
	// TTL is how long a seen key is remembered. It must outlive the
	// platform's delivery retry horizon of 48 hours.
	TTL time.Duration

	// Enabled determines whether the fast-path filter is consulted
	Enabled bool
}

// DefaultDedupConfig returns the default dedup configuration
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}
