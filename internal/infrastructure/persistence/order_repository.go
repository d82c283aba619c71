package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/trade"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByExternalID finds an order by its platform id within a store
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, storeID, externalID string) (*trade.Order, error) {
	var order trade.Order
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID).
		Order("updated_at DESC").
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Save inserts a new order
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update replaces an existing order row
func (r *GormOrderRepository) Update(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// DeleteByExternalID removes the order for an external id, if present
func (r *GormOrderRepository) DeleteByExternalID(ctx context.Context, storeID, externalID string) error {
	return r.db.WithContext(ctx).
		Delete(&trade.Order{}, "store_id = ? AND external_id = ?", storeID, externalID).Error
}

// DeleteByStore removes every order of a store
func (r *GormOrderRepository) DeleteByStore(ctx context.Context, storeID string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&trade.Order{}, "store_id = ?", storeID)
	return result.RowsAffected, result.Error
}

// FindDuplicates returns groups of rows sharing an external id,
// each group ordered most-recently-updated first, ties broken by row id
func (r *GormOrderRepository) FindDuplicates(ctx context.Context, storeID string) ([]trade.OrderDuplicateGroup, error) {
	duplicateKeys := r.db.Model(&trade.Order{}).
		Select("external_id").
		Where("store_id = ?", storeID).
		Group("external_id").
		Having("COUNT(*) > 1")

	var orders []trade.Order
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id IN (?)", storeID, duplicateKeys).
		Order("external_id ASC, updated_at DESC, id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	groups := make([]trade.OrderDuplicateGroup, 0)
	for _, order := range orders {
		n := len(groups)
		if n == 0 || groups[n-1].ExternalID != order.ExternalID {
			groups = append(groups, trade.OrderDuplicateGroup{
				StoreID:    storeID,
				ExternalID: order.ExternalID,
			})
			n++
		}
		groups[n-1].Orders = append(groups[n-1].Orders, order)
	}
	return groups, nil
}

// DeleteByIDs removes specific rows by primary key
func (r *GormOrderRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&trade.Order{}, "id IN ?", ids).Error
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
