package integration

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	// ErrPlatformNotConfigured indicates the platform client is missing configuration
	ErrPlatformNotConfigured = errors.New("integration: platform not configured")
	// ErrPlatformUnavailable indicates a network failure or 5xx from the platform
	ErrPlatformUnavailable = errors.New("integration: platform temporarily unavailable")
	// ErrPlatformRequestFailed indicates a non-retryable 4xx from the platform
	ErrPlatformRequestFailed = errors.New("integration: platform request failed")
	// ErrPlatformInvalidResponse indicates the platform returned an unparseable body
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	// ErrPlatformAuthFailed indicates the access token was rejected (401/403)
	ErrPlatformAuthFailed = errors.New("integration: platform authentication failed")
	// ErrPlatformRateLimited indicates the platform throttled the request (429)
	ErrPlatformRateLimited = errors.New("integration: platform rate limited")
	// ErrNotFoundUpstream indicates the entity no longer exists on the platform.
	// Callers treat this as a signal to remove the local record, not as a failure.
	ErrNotFoundUpstream = errors.New("integration: entity not found on platform")
)

// ---------------------------------------------------------------------------
// EntityKind
// ---------------------------------------------------------------------------

// EntityKind identifies which synchronized collection an operation targets
type EntityKind string

const (
	// EntityKindProduct targets the product collection
	EntityKindProduct EntityKind = "products"
	// EntityKindOrder targets the order collection
	EntityKindOrder EntityKind = "orders"
	// EntityKindCheckout targets the abandoned-checkout collection
	EntityKindCheckout EntityKind = "checkouts"
)

// IsValid returns true if the entity kind is valid
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityKindProduct, EntityKindOrder, EntityKindCheckout:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityKind
func (k EntityKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// LocalizedText carries a platform text field in the store's configured
// locales. Resolution order is fixed: Arabic first, then English, then French.
type LocalizedText struct {
	Ar string
	En string
	Fr string
}

// Resolve returns the first non-empty value in preference order.
// The precedence is an explicit contract, not an accident of field order.
func (t LocalizedText) Resolve() string {
	if t.Ar != "" {
		return t.Ar
	}
	if t.En != "" {
		return t.En
	}
	return t.Fr
}

// IsEmpty returns true when no locale carries a value
func (t LocalizedText) IsEmpty() bool {
	return t.Ar == "" && t.En == "" && t.Fr == ""
}

// PlatformVariant is one purchasable variant of a platform product.
// Money fields are nil when the platform omitted them or sent an
// unparseable value; parse failures are reported separately.
type PlatformVariant struct {
	VariantID string
	SKU       string
	Price     *decimal.Decimal
	SalePrice *decimal.Decimal
	Cost      *decimal.Decimal
	Stock     *int64
	Weight    *decimal.Decimal
}

// PlatformProduct is the authoritative product representation fetched from
// the commerce platform.
type PlatformProduct struct {
	ProductID   string
	Name        LocalizedText
	Description LocalizedText
	Handle      LocalizedText
	Published   bool
	Tags        []string
	Brand       string
	Variants    []PlatformVariant
	UpdatedAt   time.Time
	// ParseWarnings lists fields that arrived malformed and were dropped
	// (e.g. a price that failed decimal parsing)
	ParseWarnings []string
	// RawData is the original platform response body (JSON)
	RawData string
}

// PrimaryVariant returns the first variant, which carries the commerce
// attributes of the flattened local record. Returns nil when the product
// has no variants.
func (p *PlatformProduct) PrimaryVariant() *PlatformVariant {
	if len(p.Variants) == 0 {
		return nil
	}
	return &p.Variants[0]
}

// PlatformOrderLine is one line item of a platform order or checkout
type PlatformOrderLine struct {
	ProductID   string
	ProductName string
	SKU         string
	Quantity    int64
	UnitPrice   *decimal.Decimal
	Total       *decimal.Decimal
}

// PlatformAddress carries billing or shipping address fields
type PlatformAddress struct {
	Name       string
	Phone      string
	Country    string
	City       string
	Street     string
	PostalCode string
}

// PlatformOrder is the authoritative order representation fetched from the
// commerce platform.
type PlatformOrder struct {
	OrderID       string
	ReferenceID   string
	Status        string
	PaymentMethod string
	Currency      string
	Subtotal      *decimal.Decimal
	ShippingCost  *decimal.Decimal
	Tax           *decimal.Decimal
	Total         *decimal.Decimal
	Customer      PlatformAddress
	Billing       PlatformAddress
	Shipping      PlatformAddress
	Lines         []PlatformOrderLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ParseWarnings []string
	RawData       string
}

// PlatformCheckout is an abandoned checkout fetched from the commerce platform
type PlatformCheckout struct {
	CheckoutID    string
	Status        string
	Currency      string
	Total         *decimal.Decimal
	Customer      PlatformAddress
	Lines         []PlatformOrderLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ParseWarnings []string
	RawData       string
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// PageRequest describes one page of a paginated list fetch
type PageRequest struct {
	// Page is the 1-indexed page number
	Page int
	// PerPage is the fixed page size; a short page terminates the scan
	PerPage int
}

// Validate normalizes the page request
func (r *PageRequest) Validate() error {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage < 1 || r.PerPage > 100 {
		r.PerPage = 50
	}
	return nil
}

// ---------------------------------------------------------------------------
// Webhook Registration
// ---------------------------------------------------------------------------

// WebhookSubscription is one event subscription to register with the platform
type WebhookSubscription struct {
	// Event is the platform event name, format resource/action
	Event string
	// Name is a human-readable label shown in the platform dashboard
	Name string
}

// ---------------------------------------------------------------------------
// CommercePlatform Port Interface
// ---------------------------------------------------------------------------

// CommercePlatform is the port interface for the external commerce platform's
// REST API. All calls authenticate with the store's bearer token; the caller
// resolves the token through the credential service before invoking.
type CommercePlatform interface {
	// GetProduct fetches one product by external id.
	// Returns ErrNotFoundUpstream when the product was deleted on the platform.
	GetProduct(ctx context.Context, token, productID string) (*PlatformProduct, error)

	// GetOrder fetches one order by external id
	GetOrder(ctx context.Context, token, orderID string) (*PlatformOrder, error)

	// GetCheckout fetches one abandoned checkout by external id
	GetCheckout(ctx context.Context, token, checkoutID string) (*PlatformCheckout, error)

	// ListProducts fetches one page of the product collection
	ListProducts(ctx context.Context, token string, page PageRequest) ([]PlatformProduct, error)

	// ListOrders fetches one page of the order collection
	ListOrders(ctx context.Context, token string, page PageRequest) ([]PlatformOrder, error)

	// ListCheckouts fetches one page of the abandoned-checkout collection
	ListCheckouts(ctx context.Context, token string, page PageRequest) ([]PlatformCheckout, error)

	// RegisterWebhook registers one event subscription pointing at callbackURL
	RegisterWebhook(ctx context.Context, token string, sub WebhookSubscription, callbackURL string) error
}
