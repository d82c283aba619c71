package trade

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
)

// Order is the local denormalized snapshot of a platform order.
// Identity is the external order id within a store; reconciliation writes
// replace every synchronized field.
type Order struct {
	shared.BaseEntity
	StoreID    string `gorm:"type:varchar(64);not null;index:idx_orders_store_external,priority:1"`
	ExternalID string `gorm:"type:varchar(64);not null;index:idx_orders_store_external,priority:2"`

	ReferenceID   string `gorm:"type:varchar(64);index"`
	Status        string `gorm:"type:varchar(50);not null"`
	PaymentMethod string `gorm:"type:varchar(100)"`
	Currency      string `gorm:"type:varchar(10)"`

	Subtotal     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	ShippingCost *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Tax          *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Total        *decimal.Decimal `gorm:"type:decimal(18,4)"`

	CustomerName  string `gorm:"type:varchar(200)"`
	CustomerPhone string `gorm:"type:varchar(50)"`

	// Billing/Shipping/Items hold the platform's denormalized sub-documents as JSON
	Billing  string `gorm:"type:jsonb"`
	Shipping string `gorm:"type:jsonb"`
	Items    string `gorm:"type:jsonb"`

	PlacedAt *time.Time

	// AddedAt is the local ingestion timestamp, set once on first sync
	AddedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrderFromPlatform builds a local order from the authoritative
// platform representation
func NewOrderFromPlatform(storeID string, src *integration.PlatformOrder, billing, shipping, items string) *Order {
	o := &Order{
		BaseEntity: shared.NewBaseEntity(),
		StoreID:    storeID,
		ExternalID: src.OrderID,
		AddedAt:    time.Now(),
	}
	o.ApplyPlatform(src, billing, shipping, items)
	return o
}

// ApplyPlatform replaces every synchronized field from the platform
// representation, preserving only local bookkeeping (id, AddedAt).
func (o *Order) ApplyPlatform(src *integration.PlatformOrder, billing, shipping, items string) {
	o.ExternalID = src.OrderID
	o.ReferenceID = src.ReferenceID
	o.Status = src.Status
	o.PaymentMethod = src.PaymentMethod
	o.Currency = src.Currency
	o.Subtotal = src.Subtotal
	o.ShippingCost = src.ShippingCost
	o.Tax = src.Tax
	o.Total = src.Total
	o.CustomerName = src.Customer.Name
	o.CustomerPhone = src.Customer.Phone
	o.Billing = billing
	o.Shipping = shipping
	o.Items = items
	if !src.CreatedAt.IsZero() {
		placed := src.CreatedAt
		o.PlacedAt = &placed
	} else {
		o.PlacedAt = nil
	}
}
