package trade

import (
	"context"

	"github.com/google/uuid"
)

// OrderDuplicateGroup is a set of local order rows sharing one external id
type OrderDuplicateGroup struct {
	StoreID    string
	ExternalID string
	Orders     []Order
}

// CheckoutDuplicateGroup is a set of local checkout rows sharing one external id
type CheckoutDuplicateGroup struct {
	StoreID    string
	ExternalID string
	Checkouts  []Checkout
}

// OrderRepository persists synchronized orders
type OrderRepository interface {
	FindByExternalID(ctx context.Context, storeID, externalID string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	DeleteByExternalID(ctx context.Context, storeID, externalID string) error

	// DeleteByStore removes every order of a store.
	// Reserved for the data-subject erasure path.
	DeleteByStore(ctx context.Context, storeID string) (int64, error)

	// FindDuplicates returns groups of rows sharing an external id,
	// each group ordered most-recently-updated first
	FindDuplicates(ctx context.Context, storeID string) ([]OrderDuplicateGroup, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

// CheckoutRepository persists synchronized abandoned checkouts
type CheckoutRepository interface {
	FindByExternalID(ctx context.Context, storeID, externalID string) (*Checkout, error)
	Save(ctx context.Context, checkout *Checkout) error
	Update(ctx context.Context, checkout *Checkout) error
	DeleteByExternalID(ctx context.Context, storeID, externalID string) error

	// DeleteByStore removes every checkout of a store.
	// Reserved for the data-subject erasure path.
	DeleteByStore(ctx context.Context, storeID string) (int64, error)

	FindDuplicates(ctx context.Context, storeID string) ([]CheckoutDuplicateGroup, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

// OrderSnapshotRepository persists raw order bodies captured during bulk sync
type OrderSnapshotRepository interface {
	// Upsert replaces the snapshot for an external id, keeping the newest capture
	Upsert(ctx context.Context, snapshot *OrderSnapshot) error

	// FindByStore returns all snapshots held for a store
	FindByStore(ctx context.Context, storeID string) ([]OrderSnapshot, error)
}
