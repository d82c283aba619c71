package webhook

import (
	"strings"

	"github.com/storesync/backend/internal/domain/integration"
)

// EventType is a platform webhook event name in resource/action format.
// The set is closed: anything outside the declared constants parses to
// EventUnknown and is acknowledged without side effects.
type EventType string

const (
	// Product events
	EventProductCreated     EventType = "product/created"
	EventProductUpdated     EventType = "product/updated"
	EventProductDeleted     EventType = "product/deleted"
	EventProductAvailable   EventType = "product/available"
	EventProductQuantityLow EventType = "product/quantity_low"
	// EventProductVariantUpdated fires when a single variant changes;
	// reconciliation refetches the whole owning product
	EventProductVariantUpdated EventType = "product_variant/updated"

	// Order events
	EventOrderCreated       EventType = "order/created"
	EventOrderUpdated       EventType = "order/updated"
	EventOrderStatusUpdated EventType = "order/status_updated"
	EventOrderCancelled     EventType = "order/cancelled"
	EventOrderRefunded      EventType = "order/refunded"
	EventOrderDeleted       EventType = "order/deleted"

	// Checkout events. The platform announces an abandoned cart under its
	// own name; it reconciles through the checkout collection.
	EventCheckoutCreated EventType = "checkout/created"
	EventCheckoutUpdated EventType = "checkout/updated"
	EventAbandonedCart   EventType = "abandoned/cart"

	// App lifecycle events
	EventAppInstalled      EventType = "app/installed"
	EventAppStoreAuthorize EventType = "app/store_authorize"
	EventAppUninstalled    EventType = "app/uninstalled"
	EventAppSuspended      EventType = "app/suspended"
	EventAppResumed        EventType = "app/resumed"

	// Store metadata events. Registered so the platform keeps sending
	// them, but nothing local derives from them; they are audited in the
	// ledger as skipped.
	EventCategoryCreated    EventType = "category/created"
	EventCategoryUpdated    EventType = "category/updated"
	EventDomainUpdated      EventType = "domain/updated"
	EventCustomFieldCreated EventType = "custom_field/created"
	EventCustomFieldUpdated EventType = "custom_field/updated"

	// Data-subject erasure events (compliance)
	EventStoreRedact          EventType = "store/redact"
	EventCustomersRedact      EventType = "customers/redact"
	EventCustomersDataRequest EventType = "customers/data_request"

	// EventUnknown is the fallback for event names this system does not handle
	EventUnknown EventType = ""
)

// EventCategory groups event types by the kind of handling they require
type EventCategory int

const (
	// CategoryUnknown marks unrecognized events; they are logged and acknowledged
	CategoryUnknown EventCategory = iota
	// CategoryEntity marks events that trigger a single-entity reconciliation
	CategoryEntity
	// CategoryLifecycle marks app install-state events; they update the
	// store's connection state and never delete data
	CategoryLifecycle
	// CategoryErasure marks compliance events; the only category permitted
	// to perform a store-scoped mass delete
	CategoryErasure
	// CategoryNotice marks recognized events with no synchronized
	// collection; they are audited in the ledger and acknowledged
	CategoryNotice
)

// ParseEventType maps a raw event name to a typed event.
// Unrecognized names map to EventUnknown rather than failing, so new
// platform event types degrade to an acknowledged no-op.
func ParseEventType(raw string) EventType {
	switch e := EventType(strings.TrimSpace(raw)); e {
	case EventProductCreated, EventProductUpdated, EventProductDeleted,
		EventProductAvailable, EventProductQuantityLow,
		EventProductVariantUpdated,
		EventOrderCreated, EventOrderUpdated, EventOrderStatusUpdated,
		EventOrderCancelled, EventOrderRefunded, EventOrderDeleted,
		EventCheckoutCreated, EventCheckoutUpdated, EventAbandonedCart,
		EventAppInstalled, EventAppStoreAuthorize,
		EventAppUninstalled, EventAppSuspended, EventAppResumed,
		EventCategoryCreated, EventCategoryUpdated, EventDomainUpdated,
		EventCustomFieldCreated, EventCustomFieldUpdated,
		EventStoreRedact, EventCustomersRedact, EventCustomersDataRequest:
		return e
	default:
		return EventUnknown
	}
}

// Category returns the handling category for the event
func (e EventType) Category() EventCategory {
	switch e {
	case EventProductCreated, EventProductUpdated, EventProductDeleted,
		EventProductAvailable, EventProductQuantityLow,
		EventProductVariantUpdated,
		EventOrderCreated, EventOrderUpdated, EventOrderStatusUpdated,
		EventOrderCancelled, EventOrderRefunded, EventOrderDeleted,
		EventCheckoutCreated, EventCheckoutUpdated, EventAbandonedCart:
		return CategoryEntity
	case EventAppInstalled, EventAppStoreAuthorize,
		EventAppUninstalled, EventAppSuspended, EventAppResumed:
		return CategoryLifecycle
	case EventStoreRedact, EventCustomersRedact, EventCustomersDataRequest:
		return CategoryErasure
	case EventCategoryCreated, EventCategoryUpdated, EventDomainUpdated,
		EventCustomFieldCreated, EventCustomFieldUpdated:
		return CategoryNotice
	default:
		return CategoryUnknown
	}
}

// EntityKind returns the synchronized collection an entity event targets.
// Variant events reconcile the owning product. Returns false for
// non-entity events.
func (e EventType) EntityKind() (integration.EntityKind, bool) {
	switch e {
	case EventProductCreated, EventProductUpdated, EventProductDeleted,
		EventProductAvailable, EventProductQuantityLow, EventProductVariantUpdated:
		return integration.EntityKindProduct, true
	case EventOrderCreated, EventOrderUpdated, EventOrderStatusUpdated,
		EventOrderCancelled, EventOrderRefunded, EventOrderDeleted:
		return integration.EntityKindOrder, true
	case EventCheckoutCreated, EventCheckoutUpdated, EventAbandonedCart:
		return integration.EntityKindCheckout, true
	default:
		return "", false
	}
}

// IsDeletion returns true for entity events whose semantics are "the entity
// is gone upstream"; reconciliation removes the local record without fetching.
func (e EventType) IsDeletion() bool {
	return e == EventProductDeleted || e == EventOrderDeleted
}

// String returns the string representation of EventType
func (e EventType) String() string {
	return string(e)
}
