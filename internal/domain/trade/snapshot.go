package trade

import (
	"time"

	"github.com/storesync/backend/internal/domain/shared"
)

// OrderSnapshot is the raw platform order body captured during bulk sync.
// The refresh operation re-derives normalized order rows from these when
// the raw sync ran ahead of the local tables.
type OrderSnapshot struct {
	shared.BaseEntity
	StoreID    string    `gorm:"type:varchar(64);not null;index:idx_order_snapshots_store_external,priority:1"`
	ExternalID string    `gorm:"type:varchar(64);not null;index:idx_order_snapshots_store_external,priority:2"`
	RawData    string    `gorm:"type:jsonb;not null"`
	CapturedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderSnapshot) TableName() string {
	return "order_snapshots"
}

// NewOrderSnapshot captures a raw order body
func NewOrderSnapshot(storeID, externalID, rawData string) *OrderSnapshot {
	return &OrderSnapshot{
		BaseEntity: shared.NewBaseEntity(),
		StoreID:    storeID,
		ExternalID: externalID,
		RawData:    rawData,
		CapturedAt: time.Now(),
	}
}
