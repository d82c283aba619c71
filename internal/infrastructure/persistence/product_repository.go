package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/shared"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByExternalID finds a product by its platform id within a store
func (r *GormProductRepository) FindByExternalID(ctx context.Context, storeID, externalID string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID).
		Order("updated_at DESC").
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Save inserts a new product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update replaces an existing product row
func (r *GormProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// DeleteByExternalID removes the product for an external id, if present
func (r *GormProductRepository) DeleteByExternalID(ctx context.Context, storeID, externalID string) error {
	return r.db.WithContext(ctx).
		Delete(&catalog.Product{}, "store_id = ? AND external_id = ?", storeID, externalID).Error
}

// DeleteByStore removes every product of a store
func (r *GormProductRepository) DeleteByStore(ctx context.Context, storeID string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&catalog.Product{}, "store_id = ?", storeID)
	return result.RowsAffected, result.Error
}

// FindDuplicates returns groups of rows sharing an external id,
// each group ordered most-recently-updated first, ties broken by row id
func (r *GormProductRepository) FindDuplicates(ctx context.Context, storeID string) ([]catalog.DuplicateGroup, error) {
	duplicateKeys := r.db.Model(&catalog.Product{}).
		Select("external_id").
		Where("store_id = ?", storeID).
		Group("external_id").
		Having("COUNT(*) > 1")

	var products []catalog.Product
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id IN (?)", storeID, duplicateKeys).
		Order("external_id ASC, updated_at DESC, id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}

	return groupProducts(storeID, products), nil
}

// groupProducts folds an ordered row set into per-external-id groups
func groupProducts(storeID string, products []catalog.Product) []catalog.DuplicateGroup {
	groups := make([]catalog.DuplicateGroup, 0)
	for _, product := range products {
		n := len(groups)
		if n == 0 || groups[n-1].ExternalID != product.ExternalID {
			groups = append(groups, catalog.DuplicateGroup{
				StoreID:    storeID,
				ExternalID: product.ExternalID,
			})
			n++
		}
		groups[n-1].Products = append(groups[n-1].Products, product)
	}
	return groups
}

// DeleteByIDs removes specific rows by primary key
func (r *GormProductRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&catalog.Product{}, "id IN ?", ids).Error
}

// CountByStore returns the number of products held for a store
func (r *GormProductRepository) CountByStore(ctx context.Context, storeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("store_id = ?", storeID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
