package catalog

import (
	"context"

	"github.com/google/uuid"
)

// DuplicateGroup is a set of local rows sharing one external id
type DuplicateGroup struct {
	StoreID    string
	ExternalID string
	Products   []Product
}

// ProductRepository persists synchronized products
type ProductRepository interface {
	// FindByExternalID finds a product by its platform id within a store
	FindByExternalID(ctx context.Context, storeID, externalID string) (*Product, error)

	// Save inserts a new product
	Save(ctx context.Context, product *Product) error

	// Update replaces an existing product row
	Update(ctx context.Context, product *Product) error

	// DeleteByExternalID removes the product for an external id, if present
	DeleteByExternalID(ctx context.Context, storeID, externalID string) error

	// DeleteByStore removes every product of a store.
	// Reserved for the data-subject erasure path.
	DeleteByStore(ctx context.Context, storeID string) (int64, error)

	// FindDuplicates returns groups of rows sharing an external id,
	// each group ordered most-recently-updated first
	FindDuplicates(ctx context.Context, storeID string) ([]DuplicateGroup, error)

	// DeleteByIDs removes specific rows by primary key
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error

	// CountByStore returns the number of products held for a store
	CountByStore(ctx context.Context, storeID string) (int64, error)
}
