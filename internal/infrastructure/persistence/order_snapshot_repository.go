package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storesync/backend/internal/domain/trade"
)

// GormOrderSnapshotRepository implements OrderSnapshotRepository using GORM
type GormOrderSnapshotRepository struct {
	db *gorm.DB
}

// NewGormOrderSnapshotRepository creates a new GormOrderSnapshotRepository
func NewGormOrderSnapshotRepository(db *gorm.DB) *GormOrderSnapshotRepository {
	return &GormOrderSnapshotRepository{db: db}
}

// Upsert replaces the snapshot for an external id, keeping the newest capture
func (r *GormOrderSnapshotRepository) Upsert(ctx context.Context, snapshot *trade.OrderSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"raw_data", "captured_at", "updated_at"}),
		}).
		Create(snapshot).Error
}

// FindByStore returns all snapshots held for a store
func (r *GormOrderSnapshotRepository) FindByStore(ctx context.Context, storeID string) ([]trade.OrderSnapshot, error) {
	var snapshots []trade.OrderSnapshot
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("captured_at DESC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Ensure GormOrderSnapshotRepository implements OrderSnapshotRepository
var _ trade.OrderSnapshotRepository = (*GormOrderSnapshotRepository)(nil)
