package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/application/credential"
	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/trade"
	"github.com/storesync/backend/internal/infrastructure/telemetry"
)

// SyncAction is the outcome of a single-entity reconciliation
type SyncAction string

const (
	// ActionCreated means no local record existed and one was inserted
	ActionCreated SyncAction = "created"
	// ActionUpdated means an existing local record was replaced
	ActionUpdated SyncAction = "updated"
	// ActionDeleted means the entity was gone upstream and the local record
	// was removed
	ActionDeleted SyncAction = "deleted"
)

// SyncResult reports a single-entity reconciliation
type SyncResult struct {
	Action SyncAction `json:"action"`
	// Warnings lists fields that arrived malformed and were stored as null
	Warnings []string `json:"warnings,omitempty"`
}

// BulkResult reports a full paginated collection reconciliation
type BulkResult struct {
	Total   int `json:"total"`
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	// ErrorDetails carries per-item failures and parse warnings.
	// Parse warnings do not increment Errors; the item still lands.
	ErrorDetails []string `json:"error_details,omitempty"`
}

// CleanupResult reports a duplicate-cleanup pass
type CleanupResult struct {
	// Merged is the number of external ids that had redundant rows collapsed
	Merged int `json:"merged"`
	// Deleted is the number of redundant rows removed
	Deleted int `json:"deleted"`
}

// RefreshResult reports a local refresh from captured snapshots
type RefreshResult struct {
	Total        int      `json:"total"`
	Added        int      `json:"added"`
	Updated      int      `json:"updated"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"error_details,omitempty"`
}

// EraseResult reports a data-subject erasure pass
type EraseResult struct {
	Products  int64 `json:"products"`
	Orders    int64 `json:"orders"`
	Checkouts int64 `json:"checkouts"`
}

// OrderDecoder re-parses a raw captured order body into the platform
// representation. The platform adapter provides this so snapshots go
// through the same decoding path as live responses.
type OrderDecoder interface {
	DecodeOrder(raw []byte) (*integration.PlatformOrder, error)
}

// Service is the reconciliation engine. It fetches authoritative entity
// state from the platform and applies it to local storage through
// replace-by-id upserts. It holds no state between calls; concurrent runs
// for the same external id converge because both derive from the same
// source and the storage layer is last-write-wins.
type Service struct {
	platform  integration.CommercePlatform
	decoder   OrderDecoder
	creds     *credential.Service
	products  catalog.ProductRepository
	orders    trade.OrderRepository
	checkouts trade.CheckoutRepository
	snapshots trade.OrderSnapshotRepository
	pageSize  int
	logger    *zap.Logger
	metrics   *telemetry.PipelineMetrics
}

// NewService creates a reconciliation Service
func NewService(
	platform integration.CommercePlatform,
	decoder OrderDecoder,
	creds *credential.Service,
	products catalog.ProductRepository,
	orders trade.OrderRepository,
	checkouts trade.CheckoutRepository,
	snapshots trade.OrderSnapshotRepository,
	pageSize int,
	logger *zap.Logger,
) *Service {
	if pageSize <= 0 {
		pageSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		platform:  platform,
		decoder:   decoder,
		creds:     creds,
		products:  products,
		orders:    orders,
		checkouts: checkouts,
		snapshots: snapshots,
		pageSize:  pageSize,
		logger:    logger,
	}
}

// SetPipelineMetrics sets the pipeline metrics collector
func (s *Service) SetPipelineMetrics(pm *telemetry.PipelineMetrics) {
	s.metrics = pm
}

// recordItems emits the per-entity sync counter when metrics are wired
func (s *Service) recordItems(ctx context.Context, storeID string, kind integration.EntityKind, outcome string, count int64) {
	if s.metrics != nil {
		s.metrics.RecordSyncItems(ctx, storeID, kind.String(), outcome, count)
	}
}

// ---------------------------------------------------------------------------
// Single-Entity Sync
// ---------------------------------------------------------------------------

// SyncEntity fetches the current upstream representation of one entity and
// upserts it locally. A 404 from the platform means the entity was deleted
// upstream; the local record is removed rather than left stale.
func (s *Service) SyncEntity(ctx context.Context, storeID string, kind integration.EntityKind, externalID string) (*SyncResult, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_KIND", fmt.Sprintf("Unknown entity kind: %s", kind))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "sync_entity",
		telemetry.SpanAttrStoreID.String(storeID),
		telemetry.SpanAttrEntityKind.String(kind.String()),
		telemetry.SpanAttrEntityID.String(externalID),
	)
	defer span.End()

	token, err := s.creds.ResolveToken(ctx, storeID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *SyncResult
	switch kind {
	case integration.EntityKindProduct:
		result, err = s.syncProduct(ctx, token, storeID, externalID)
	case integration.EntityKindOrder:
		result, err = s.syncOrder(ctx, token, storeID, externalID)
	default:
		result, err = s.syncCheckout(ctx, token, storeID, externalID)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(telemetry.SpanAttrOutcome.String(string(result.Action)))
	s.recordItems(ctx, storeID, kind, string(result.Action), 1)
	return result, nil
}

// DeleteEntity removes the local record for an external id, if present.
// Used by deletion webhooks, which carry no fetchable upstream state.
func (s *Service) DeleteEntity(ctx context.Context, storeID string, kind integration.EntityKind, externalID string) error {
	switch kind {
	case integration.EntityKindProduct:
		return s.products.DeleteByExternalID(ctx, storeID, externalID)
	case integration.EntityKindOrder:
		return s.orders.DeleteByExternalID(ctx, storeID, externalID)
	case integration.EntityKindCheckout:
		return s.checkouts.DeleteByExternalID(ctx, storeID, externalID)
	default:
		return shared.NewDomainError("INVALID_ENTITY_KIND", fmt.Sprintf("Unknown entity kind: %s", kind))
	}
}

func (s *Service) syncProduct(ctx context.Context, token, storeID, externalID string) (*SyncResult, error) {
	src, err := s.platform.GetProduct(ctx, token, externalID)
	if err != nil {
		if errors.Is(err, integration.ErrNotFoundUpstream) {
			if delErr := s.products.DeleteByExternalID(ctx, storeID, externalID); delErr != nil {
				return nil, delErr
			}
			return &SyncResult{Action: ActionDeleted}, nil
		}
		return nil, err
	}

	action, err := s.upsertProduct(ctx, storeID, src)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Action: action, Warnings: src.ParseWarnings}, nil
}

func (s *Service) syncOrder(ctx context.Context, token, storeID, externalID string) (*SyncResult, error) {
	src, err := s.platform.GetOrder(ctx, token, externalID)
	if err != nil {
		if errors.Is(err, integration.ErrNotFoundUpstream) {
			if delErr := s.orders.DeleteByExternalID(ctx, storeID, externalID); delErr != nil {
				return nil, delErr
			}
			return &SyncResult{Action: ActionDeleted}, nil
		}
		return nil, err
	}

	action, err := s.upsertOrder(ctx, storeID, src)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Action: action, Warnings: src.ParseWarnings}, nil
}

func (s *Service) syncCheckout(ctx context.Context, token, storeID, externalID string) (*SyncResult, error) {
	src, err := s.platform.GetCheckout(ctx, token, externalID)
	if err != nil {
		if errors.Is(err, integration.ErrNotFoundUpstream) {
			if delErr := s.checkouts.DeleteByExternalID(ctx, storeID, externalID); delErr != nil {
				return nil, delErr
			}
			return &SyncResult{Action: ActionDeleted}, nil
		}
		return nil, err
	}

	action, err := s.upsertCheckout(ctx, storeID, src)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Action: action, Warnings: src.ParseWarnings}, nil
}

// ---------------------------------------------------------------------------
// Upserts
// ---------------------------------------------------------------------------

// upsertProduct applies the replace-by-id algorithm: update every
// synchronized field when a row exists, insert with a fresh ingestion
// timestamp when it does not.
func (s *Service) upsertProduct(ctx context.Context, storeID string, src *integration.PlatformProduct) (SyncAction, error) {
	existing, err := s.products.FindByExternalID(ctx, storeID, src.ProductID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	if existing != nil {
		existing.ApplyPlatform(src)
		if err := s.products.Update(ctx, existing); err != nil {
			return "", err
		}
		return ActionUpdated, nil
	}

	product := catalog.NewProductFromPlatform(storeID, src)
	if err := s.products.Save(ctx, product); err != nil {
		return "", err
	}
	return ActionCreated, nil
}

func (s *Service) upsertOrder(ctx context.Context, storeID string, src *integration.PlatformOrder) (SyncAction, error) {
	billing, shipping, items := marshalOrderDocs(src)

	existing, err := s.orders.FindByExternalID(ctx, storeID, src.OrderID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	if existing != nil {
		existing.ApplyPlatform(src, billing, shipping, items)
		if err := s.orders.Update(ctx, existing); err != nil {
			return "", err
		}
		return ActionUpdated, nil
	}

	order := trade.NewOrderFromPlatform(storeID, src, billing, shipping, items)
	if err := s.orders.Save(ctx, order); err != nil {
		return "", err
	}
	return ActionCreated, nil
}

func (s *Service) upsertCheckout(ctx context.Context, storeID string, src *integration.PlatformCheckout) (SyncAction, error) {
	items := marshalJSON(src.Lines)

	existing, err := s.checkouts.FindByExternalID(ctx, storeID, src.CheckoutID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	if existing != nil {
		existing.ApplyPlatform(src, items)
		if err := s.checkouts.Update(ctx, existing); err != nil {
			return "", err
		}
		return ActionUpdated, nil
	}

	checkout := trade.NewCheckoutFromPlatform(storeID, src, items)
	if err := s.checkouts.Save(ctx, checkout); err != nil {
		return "", err
	}
	return ActionCreated, nil
}

func marshalOrderDocs(src *integration.PlatformOrder) (billing, shipping, items string) {
	return marshalJSON(src.Billing), marshalJSON(src.Shipping), marshalJSON(src.Lines)
}

func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// ---------------------------------------------------------------------------
// Bulk Sync
// ---------------------------------------------------------------------------

// BulkSync pages through the entire upstream collection and upserts every
// record. Pages are fetched sequentially; a fetch error stops the scan but
// preserves the progress made so far, and a single item failure is counted
// and skipped rather than aborting the run.
func (s *Service) BulkSync(ctx context.Context, storeID string, kind integration.EntityKind) (*BulkResult, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_KIND", fmt.Sprintf("Unknown entity kind: %s", kind))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "bulk_sync",
		telemetry.SpanAttrStoreID.String(storeID),
		telemetry.SpanAttrEntityKind.String(kind.String()),
	)
	defer span.End()

	token, err := s.creds.ResolveToken(ctx, storeID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &BulkResult{ErrorDetails: make([]string, 0)}
	started := time.Now()

	for page := 1; ; page++ {
		req := integration.PageRequest{Page: page, PerPage: s.pageSize}

		var fetched int
		var fetchErr error
		switch kind {
		case integration.EntityKindProduct:
			fetched, fetchErr = s.bulkProductPage(ctx, token, storeID, req, result)
		case integration.EntityKindOrder:
			fetched, fetchErr = s.bulkOrderPage(ctx, token, storeID, req, result)
		default:
			fetched, fetchErr = s.bulkCheckoutPage(ctx, token, storeID, req, result)
		}

		if fetchErr != nil {
			// Partial progress stands; the failed page is recorded, not retried here
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("page %d: fetch failed: %v", page, fetchErr))
			s.logger.Warn("bulk sync page fetch failed",
				zap.String("store_id", storeID),
				zap.String("kind", kind.String()),
				zap.Int("page", page),
				zap.Error(fetchErr),
			)
			break
		}

		span.AddEvent("page_synced", trace.WithAttributes(
			telemetry.SpanAttrPage.Int(page),
			attribute.Int("items", fetched),
		))

		// A short page terminates the scan
		if fetched < s.pageSize {
			break
		}
	}

	span.SetAttributes(
		telemetry.SpanAttrItemsTotal.Int(result.Added+result.Updated),
		telemetry.SpanAttrErrors.Int(result.Errors),
	)

	if s.metrics != nil {
		s.metrics.RecordBulkSyncDuration(ctx, kind.String(), time.Since(started))
	}
	s.recordItems(ctx, storeID, kind, string(ActionCreated), int64(result.Added))
	s.recordItems(ctx, storeID, kind, string(ActionUpdated), int64(result.Updated))

	return result, nil
}

func (s *Service) bulkProductPage(ctx context.Context, token, storeID string, req integration.PageRequest, result *BulkResult) (int, error) {
	items, err := s.platform.ListProducts(ctx, token, req)
	if err != nil {
		return 0, err
	}

	for i := range items {
		src := &items[i]
		result.Total++
		result.ErrorDetails = appendWarnings(result.ErrorDetails, "product", src.ProductID, src.ParseWarnings)

		action, err := s.upsertProduct(ctx, storeID, src)
		if err != nil {
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("product %s: %v", src.ProductID, err))
			continue
		}
		result.tally(action)
	}
	return len(items), nil
}

func (s *Service) bulkOrderPage(ctx context.Context, token, storeID string, req integration.PageRequest, result *BulkResult) (int, error) {
	items, err := s.platform.ListOrders(ctx, token, req)
	if err != nil {
		return 0, err
	}

	for i := range items {
		src := &items[i]
		result.Total++
		result.ErrorDetails = appendWarnings(result.ErrorDetails, "order", src.OrderID, src.ParseWarnings)

		// Capture the raw body so a later refresh can re-derive local rows
		if src.RawData != "" {
			snapshot := trade.NewOrderSnapshot(storeID, src.OrderID, src.RawData)
			if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
				result.ErrorDetails = append(result.ErrorDetails,
					fmt.Sprintf("order %s: snapshot capture failed: %v", src.OrderID, err))
			}
		}

		action, err := s.upsertOrder(ctx, storeID, src)
		if err != nil {
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("order %s: %v", src.OrderID, err))
			continue
		}
		result.tally(action)
	}
	return len(items), nil
}

func (s *Service) bulkCheckoutPage(ctx context.Context, token, storeID string, req integration.PageRequest, result *BulkResult) (int, error) {
	items, err := s.platform.ListCheckouts(ctx, token, req)
	if err != nil {
		return 0, err
	}

	for i := range items {
		src := &items[i]
		result.Total++
		result.ErrorDetails = appendWarnings(result.ErrorDetails, "checkout", src.CheckoutID, src.ParseWarnings)

		action, err := s.upsertCheckout(ctx, storeID, src)
		if err != nil {
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("checkout %s: %v", src.CheckoutID, err))
			continue
		}
		result.tally(action)
	}
	return len(items), nil
}

func (r *BulkResult) tally(action SyncAction) {
	switch action {
	case ActionCreated:
		r.Added++
	case ActionUpdated:
		r.Updated++
	}
}

func appendWarnings(details []string, kind, id string, warnings []string) []string {
	for _, w := range warnings {
		details = append(details, fmt.Sprintf("%s %s: %s", kind, id, w))
	}
	return details
}

// ---------------------------------------------------------------------------
// Cleanup
// ---------------------------------------------------------------------------

// CleanupDuplicates collapses groups of local rows sharing an external id
// down to the freshest row per group, across products, orders and checkouts.
func (s *Service) CleanupDuplicates(ctx context.Context, storeID string) (*CleanupResult, error) {
	result := &CleanupResult{}

	productGroups, err := s.products.FindDuplicates(ctx, storeID)
	if err != nil {
		return nil, err
	}
	for _, group := range productGroups {
		if len(group.Products) < 2 {
			continue
		}
		// Rows are ordered freshest first; everything after the head goes
		stale := make([]uuid.UUID, 0, len(group.Products)-1)
		for _, p := range group.Products[1:] {
			stale = append(stale, p.ID)
		}
		if err := s.products.DeleteByIDs(ctx, stale); err != nil {
			return nil, err
		}
		result.Merged++
		result.Deleted += len(stale)
	}

	orderGroups, err := s.orders.FindDuplicates(ctx, storeID)
	if err != nil {
		return nil, err
	}
	for _, group := range orderGroups {
		if len(group.Orders) < 2 {
			continue
		}
		stale := make([]uuid.UUID, 0, len(group.Orders)-1)
		for _, o := range group.Orders[1:] {
			stale = append(stale, o.ID)
		}
		if err := s.orders.DeleteByIDs(ctx, stale); err != nil {
			return nil, err
		}
		result.Merged++
		result.Deleted += len(stale)
	}

	checkoutGroups, err := s.checkouts.FindDuplicates(ctx, storeID)
	if err != nil {
		return nil, err
	}
	for _, group := range checkoutGroups {
		if len(group.Checkouts) < 2 {
			continue
		}
		stale := make([]uuid.UUID, 0, len(group.Checkouts)-1)
		for _, c := range group.Checkouts[1:] {
			stale = append(stale, c.ID)
		}
		if err := s.checkouts.DeleteByIDs(ctx, stale); err != nil {
			return nil, err
		}
		result.Merged++
		result.Deleted += len(stale)
	}

	return result, nil
}

// ---------------------------------------------------------------------------
// Refresh From Snapshots
// ---------------------------------------------------------------------------

// RefreshFromSnapshots re-derives normalized order rows from the captured
// raw snapshot table, for when the raw sync ran ahead of the local tables.
// No platform calls are made.
func (s *Service) RefreshFromSnapshots(ctx context.Context, storeID string) (*RefreshResult, error) {
	snapshots, err := s.snapshots.FindByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{ErrorDetails: make([]string, 0)}
	for i := range snapshots {
		snap := &snapshots[i]
		result.Total++

		src, err := s.decoder.DecodeOrder([]byte(snap.RawData))
		if err != nil {
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("order %s: %v", snap.ExternalID, err))
			continue
		}
		result.ErrorDetails = appendWarnings(result.ErrorDetails, "order", src.OrderID, src.ParseWarnings)

		action, err := s.upsertOrder(ctx, storeID, src)
		if err != nil {
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("order %s: %v", snap.ExternalID, err))
			continue
		}
		switch action {
		case ActionCreated:
			result.Added++
		case ActionUpdated:
			result.Updated++
		}
	}

	return result, nil
}

// ---------------------------------------------------------------------------
// Erasure
// ---------------------------------------------------------------------------

// EraseStore removes all locally held synchronized data for a store.
// This is the only mass-delete path; it exists for data-subject erasure
// events and must not be reachable from any other flow.
func (s *Service) EraseStore(ctx context.Context, storeID string) (*EraseResult, error) {
	result := &EraseResult{}

	products, err := s.products.DeleteByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	result.Products = products

	orders, err := s.orders.DeleteByStore(ctx, storeID)
	if err != nil {
		return result, err
	}
	result.Orders = orders

	checkouts, err := s.checkouts.DeleteByStore(ctx, storeID)
	if err != nil {
		return result, err
	}
	result.Checkouts = checkouts

	s.logger.Info("store data erased",
		zap.String("store_id", storeID),
		zap.Int64("products", result.Products),
		zap.Int64("orders", result.Orders),
		zap.Int64("checkouts", result.Checkouts),
	)
	return result, nil
}
