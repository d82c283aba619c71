package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/trade"
)

// GormCheckoutRepository implements CheckoutRepository using GORM
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewGormCheckoutRepository creates a new GormCheckoutRepository
func NewGormCheckoutRepository(db *gorm.DB) *GormCheckoutRepository {
	return &GormCheckoutRepository{db: db}
}

// FindByExternalID finds a checkout by its platform id within a store
func (r *GormCheckoutRepository) FindByExternalID(ctx context.Context, storeID, externalID string) (*trade.Checkout, error) {
	var checkout trade.Checkout
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID).
		Order("updated_at DESC").
		First(&checkout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &checkout, nil
}

// Save inserts a new checkout
func (r *GormCheckoutRepository) Save(ctx context.Context, checkout *trade.Checkout) error {
	return r.db.WithContext(ctx).Create(checkout).Error
}

// Update replaces an existing checkout row
func (r *GormCheckoutRepository) Update(ctx context.Context, checkout *trade.Checkout) error {
	return r.db.WithContext(ctx).Save(checkout).Error
}

// DeleteByExternalID removes the checkout for an external id, if present
func (r *GormCheckoutRepository) DeleteByExternalID(ctx context.Context, storeID, externalID string) error {
	return r.db.WithContext(ctx).
		Delete(&trade.Checkout{}, "store_id = ? AND external_id = ?", storeID, externalID).Error
}

// DeleteByStore removes every checkout of a store
func (r *GormCheckoutRepository) DeleteByStore(ctx context.Context, storeID string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&trade.Checkout{}, "store_id = ?", storeID)
	return result.RowsAffected, result.Error
}

// FindDuplicates returns groups of rows sharing an external id,
// each group ordered most-recently-updated first, ties broken by row id
func (r *GormCheckoutRepository) FindDuplicates(ctx context.Context, storeID string) ([]trade.CheckoutDuplicateGroup, error) {
	duplicateKeys := r.db.Model(&trade.Checkout{}).
		Select("external_id").
		Where("store_id = ?", storeID).
		Group("external_id").
		Having("COUNT(*) > 1")

	var checkouts []trade.Checkout
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id IN (?)", storeID, duplicateKeys).
		Order("external_id ASC, updated_at DESC, id ASC").
		Find(&checkouts).Error; err != nil {
		return nil, err
	}

	groups := make([]trade.CheckoutDuplicateGroup, 0)
	for _, checkout := range checkouts {
		n := len(groups)
		if n == 0 || groups[n-1].ExternalID != checkout.ExternalID {
			groups = append(groups, trade.CheckoutDuplicateGroup{
				StoreID:    storeID,
				ExternalID: checkout.ExternalID,
			})
			n++
		}
		groups[n-1].Checkouts = append(groups[n-1].Checkouts, checkout)
	}
	return groups, nil
}

// DeleteByIDs removes specific rows by primary key
func (r *GormCheckoutRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&trade.Checkout{}, "id IN ?", ids).Error
}

// Ensure GormCheckoutRepository implements CheckoutRepository
var _ trade.CheckoutRepository = (*GormCheckoutRepository)(nil)
