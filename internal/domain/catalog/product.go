package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
)

// Product is the local, flattened view of a platform product.
// Identity is the external product id within a store; a reconciliation
// write replaces every synchronized field so upstream removals propagate.
type Product struct {
	shared.BaseEntity
	StoreID    string `gorm:"type:varchar(64);not null;index:idx_products_store_external,priority:1"`
	ExternalID string `gorm:"type:varchar(64);not null;index:idx_products_store_external,priority:2"`

	// Locale-resolved text fields (ar, then en, then fr)
	Name        string `gorm:"type:varchar(500);not null"`
	Description string `gorm:"type:text"`
	Handle      string `gorm:"type:varchar(500)"`

	Published bool   `gorm:"not null;default:false"`
	Tags      string `gorm:"type:text"`
	Brand     string `gorm:"type:varchar(200)"`

	// Commerce attributes flattened from the first variant
	Price     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SalePrice *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Stock     *int64
	Weight    *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SKU       string           `gorm:"type:varchar(100)"`
	Cost      *decimal.Decimal `gorm:"type:decimal(18,4)"`

	// AddedAt is the local ingestion timestamp, set once on first sync
	AddedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProductFromPlatform builds a local product from the authoritative
// platform representation. Variants beyond the first are intentionally
// dropped; the primary variant carries the commerce attributes.
func NewProductFromPlatform(storeID string, src *integration.PlatformProduct) *Product {
	p := &Product{
		BaseEntity: shared.NewBaseEntity(),
		StoreID:    storeID,
		ExternalID: src.ProductID,
		AddedAt:    time.Now(),
	}
	p.ApplyPlatform(src)
	return p
}

// ApplyPlatform replaces every synchronized field from the platform
// representation, preserving only local bookkeeping (id, AddedAt).
func (p *Product) ApplyPlatform(src *integration.PlatformProduct) {
	p.ExternalID = src.ProductID
	p.Name = src.Name.Resolve()
	p.Description = src.Description.Resolve()
	p.Handle = src.Handle.Resolve()
	p.Published = src.Published
	p.Tags = strings.Join(src.Tags, ",")
	p.Brand = src.Brand

	p.Price = nil
	p.SalePrice = nil
	p.Stock = nil
	p.Weight = nil
	p.SKU = ""
	p.Cost = nil
	if v := src.PrimaryVariant(); v != nil {
		p.Price = v.Price
		p.SalePrice = v.SalePrice
		p.Stock = v.Stock
		p.Weight = v.Weight
		p.SKU = v.SKU
		p.Cost = v.Cost
	}
	p.Touch()
}
