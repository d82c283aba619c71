package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormEntityCountProvider implements EntityCountProvider and StoreProvider
// using GORM. It queries the synced entity tables directly for row counts.
type GormEntityCountProvider struct {
	db *gorm.DB
}

// NewGormEntityCountProvider creates a new GormEntityCountProvider.
func NewGormEntityCountProvider(db *gorm.DB) *GormEntityCountProvider {
	return &GormEntityCountProvider{db: db}
}

// entityTables maps the reported entity kind to its backing table
var entityTables = map[string]string{
	"products":  "products",
	"orders":    "orders",
	"checkouts": "checkouts",
}

// GetEntityCounts returns the number of locally synced rows per entity kind
// for one store.
func (p *GormEntityCountProvider) GetEntityCounts(ctx context.Context, storeID string) (map[string]int64, error) {
	counts := make(map[string]int64, len(entityTables))

	for kind, table := range entityTables {
		var count int64
		err := p.db.WithContext(ctx).
			Table(table).
			Where("store_id = ?", storeID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		counts[kind] = count
	}

	return counts, nil
}

// GetConnectedStoreIDs returns the ids of stores whose platform app is
// currently installed and usable.
func (p *GormEntityCountProvider) GetConnectedStoreIDs(ctx context.Context) ([]string, error) {
	var storeIDs []string
	err := p.db.WithContext(ctx).
		Table("credentials").
		Where("state = ?", "connected").
		Pluck("store_id", &storeIDs).Error

	if err != nil {
		return nil, err
	}

	return storeIDs, nil
}
