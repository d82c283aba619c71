package trade

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
)

// Checkout is the local snapshot of an abandoned platform checkout.
// Dismissed is local-only state: a merchant can hide a checkout from the
// dashboard without deleting the synchronized record.
type Checkout struct {
	shared.BaseEntity
	StoreID    string `gorm:"type:varchar(64);not null;index:idx_checkouts_store_external,priority:1"`
	ExternalID string `gorm:"type:varchar(64);not null;index:idx_checkouts_store_external,priority:2"`

	Status   string           `gorm:"type:varchar(50)"`
	Currency string           `gorm:"type:varchar(10)"`
	Total    *decimal.Decimal `gorm:"type:decimal(18,4)"`

	CustomerName  string `gorm:"type:varchar(200)"`
	CustomerPhone string `gorm:"type:varchar(50)"`

	Items string `gorm:"type:jsonb"`

	Dismissed bool      `gorm:"not null;default:false"`
	AddedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Checkout) TableName() string {
	return "checkouts"
}

// NewCheckoutFromPlatform builds a local checkout from the authoritative
// platform representation
func NewCheckoutFromPlatform(storeID string, src *integration.PlatformCheckout, items string) *Checkout {
	c := &Checkout{
		BaseEntity: shared.NewBaseEntity(),
		StoreID:    storeID,
		ExternalID: src.CheckoutID,
		AddedAt:    time.Now(),
	}
	c.ApplyPlatform(src, items)
	return c
}

// ApplyPlatform replaces every synchronized field, preserving local
// bookkeeping (id, AddedAt, Dismissed)
func (c *Checkout) ApplyPlatform(src *integration.PlatformCheckout, items string) {
	c.ExternalID = src.CheckoutID
	c.Status = src.Status
	c.Currency = src.Currency
	c.Total = src.Total
	c.CustomerName = src.Customer.Name
	c.CustomerPhone = src.Customer.Phone
	c.Items = items
}
