package webhook

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appcredential "github.com/storesync/backend/internal/application/credential"
	appsync "github.com/storesync/backend/internal/application/sync"
	"github.com/storesync/backend/internal/domain/credential"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/webhook"
	"github.com/storesync/backend/internal/infrastructure/telemetry"
)

// Delivery is one verified inbound webhook delivery. The HTTP layer has
// already checked the signature; the raw body travels here untouched for
// the audit record.
type Delivery struct {
	StoreID  string
	Event    string
	EntityID string
	// Payload is the raw request body, stored verbatim in the ledger
	Payload string
}

// Outcome reports how a delivery was handled
type Outcome struct {
	Status webhook.DeliveryStatus `json:"status"`
	// Duplicate is true when the idempotency key was already known and no
	// side effects ran
	Duplicate bool `json:"duplicate"`
	// Action is set for entity events that reached the reconciliation engine
	Action appsync.SyncAction `json:"action,omitempty"`
	// Erased is set for data-subject erasure events
	Erased *appsync.EraseResult `json:"erased,omitempty"`
}

// Service processes verified webhook deliveries: it registers them in the
// idempotency ledger, routes them by event category, and finalizes the
// ledger entry with the handler outcome. Processing is synchronous; each
// handler does at most one platform fetch and one local write, which fits
// inside the platform's response deadline.
type Service struct {
	ledger  webhook.LogRepository
	dedup   webhook.DedupStore
	creds   *appcredential.Service
	syncer  *appsync.Service
	config  webhook.DedupConfig
	logger  *zap.Logger
	metrics *telemetry.PipelineMetrics
}

// NewService creates a webhook processing Service
func NewService(
	ledger webhook.LogRepository,
	dedup webhook.DedupStore,
	creds *appcredential.Service,
	syncer *appsync.Service,
	config webhook.DedupConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger: ledger,
		dedup:  dedup,
		creds:  creds,
		syncer: syncer,
		config: config,
		logger: logger,
	}
}

// SetPipelineMetrics sets the pipeline metrics collector
func (s *Service) SetPipelineMetrics(pm *telemetry.PipelineMetrics) {
	s.metrics = pm
}

// recordDelivery emits the per-delivery counter when metrics are wired
func (s *Service) recordDelivery(ctx context.Context, d Delivery, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(ctx, d.StoreID, d.Event, outcome)
	}
}

// Process handles one delivery end to end. Returning an error means the
// handler failed after registration; the ledger entry is finalized as
// failed before the error propagates.
func (s *Service) Process(ctx context.Context, d Delivery) (*Outcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "webhook", "process",
		telemetry.SpanAttrStoreID.String(d.StoreID),
		telemetry.SpanAttrEventType.String(d.Event),
	)
	defer span.End()

	if d.StoreID == "" {
		return nil, shared.NewDomainError("MISSING_STORE_ID", "Store ID is required")
	}
	if d.Event == "" {
		return nil, shared.NewDomainError("MISSING_EVENT", "Event name is required")
	}

	event := webhook.ParseEventType(d.Event)
	if event.Category() == webhook.CategoryEntity && d.EntityID == "" {
		return nil, shared.NewDomainError("MISSING_ENTITY_ID", "Entity ID is required for entity events")
	}

	// The key keeps the raw event name so unknown events dedup correctly too
	key := webhook.IdempotencyKey(d.StoreID, webhook.EventType(d.Event), d.EntityID)
	span.SetAttributes(telemetry.SpanAttrIdempotencyKey.String(key))

	// Fast path: a recently seen key skips the ledger round trip.
	// Dedup store failures degrade to the slow path, never to an error.
	if s.config.Enabled {
		seen, err := s.dedup.IsSeen(ctx, key)
		if err != nil {
			s.logger.Warn("dedup check failed, falling through to ledger",
				zap.String("idempotency_key", key),
				zap.Error(err),
			)
		} else if seen {
			span.SetAttributes(telemetry.SpanAttrOutcome.String("duplicate"))
			s.recordDelivery(ctx, d, "duplicate")
			return &Outcome{Status: webhook.StatusSuccess, Duplicate: true}, nil
		}
	}

	entry := webhook.NewLogEntry(d.StoreID, webhook.EventType(d.Event), d.EntityID, d.Payload)
	isNew, err := s.ledger.Register(ctx, entry)
	if err != nil {
		err = fmt.Errorf("failed to register delivery: %w", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !isNew {
		// A retry of an already handled delivery; acknowledge without
		// reprocessing so the platform stops retrying
		span.SetAttributes(telemetry.SpanAttrOutcome.String("duplicate"))
		s.markSeen(ctx, key)
		s.recordDelivery(ctx, d, "duplicate")
		return &Outcome{Status: webhook.StatusSuccess, Duplicate: true}, nil
	}

	outcome, handlerErr := s.dispatch(ctx, event, d)
	if handlerErr != nil {
		if finErr := s.ledger.Finalize(ctx, key, webhook.StatusFailed, handlerErr.Error()); finErr != nil {
			s.logger.Error("failed to finalize ledger entry",
				zap.String("idempotency_key", key),
				zap.Error(finErr),
			)
		}
		telemetry.RecordError(span, handlerErr)
		s.recordDelivery(ctx, d, string(webhook.StatusFailed))
		return nil, handlerErr
	}

	span.SetAttributes(telemetry.SpanAttrOutcome.String(string(outcome.Status)))
	if finErr := s.ledger.Finalize(ctx, key, outcome.Status, ""); finErr != nil {
		s.logger.Error("failed to finalize ledger entry",
			zap.String("idempotency_key", key),
			zap.Error(finErr),
		)
	}
	s.markSeen(ctx, key)
	s.recordDelivery(ctx, d, string(outcome.Status))

	return outcome, nil
}

// dispatch routes a registered delivery to its category handler
func (s *Service) dispatch(ctx context.Context, event webhook.EventType, d Delivery) (*Outcome, error) {
	switch event.Category() {
	case webhook.CategoryEntity:
		return s.handleEntity(ctx, event, d)
	case webhook.CategoryLifecycle:
		return s.handleLifecycle(ctx, event, d)
	case webhook.CategoryErasure:
		return s.handleErasure(ctx, d)
	case webhook.CategoryNotice:
		// Recognized but nothing local derives from it; the ledger entry
		// is the audit record
		return &Outcome{Status: webhook.StatusSkipped}, nil
	default:
		// Unknown events are acknowledged so new platform event types do
		// not pile up as failed retries
		s.logger.Info("unrecognized webhook event acknowledged",
			zap.String("store_id", d.StoreID),
			zap.String("event", d.Event),
		)
		return &Outcome{Status: webhook.StatusSkipped}, nil
	}
}

// handleEntity reconciles the affected entity against upstream state
func (s *Service) handleEntity(ctx context.Context, event webhook.EventType, d Delivery) (*Outcome, error) {
	kind, ok := event.EntityKind()
	if !ok {
		return &Outcome{Status: webhook.StatusSkipped}, nil
	}

	if event.IsDeletion() {
		if err := s.syncer.DeleteEntity(ctx, d.StoreID, kind, d.EntityID); err != nil {
			return nil, err
		}
		return &Outcome{Status: webhook.StatusSuccess, Action: appsync.ActionDeleted}, nil
	}

	result, err := s.syncer.SyncEntity(ctx, d.StoreID, kind, d.EntityID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Status: webhook.StatusSuccess, Action: result.Action}, nil
}

// handleLifecycle updates the store connection state. Data stays in place;
// only an erasure event removes records.
func (s *Service) handleLifecycle(ctx context.Context, event webhook.EventType, d Delivery) (*Outcome, error) {
	var state credential.ConnectionState
	switch event {
	case webhook.EventAppUninstalled:
		state = credential.StateUninstalled
	case webhook.EventAppSuspended:
		state = credential.StateSuspended
	case webhook.EventAppInstalled, webhook.EventAppStoreAuthorize, webhook.EventAppResumed:
		state = credential.StateConnected
	default:
		return &Outcome{Status: webhook.StatusSkipped}, nil
	}

	if err := s.creds.SetState(ctx, d.StoreID, state); err != nil {
		return nil, err
	}
	return &Outcome{Status: webhook.StatusSuccess}, nil
}

// handleErasure runs the compliance mass-delete for the store
func (s *Service) handleErasure(ctx context.Context, d Delivery) (*Outcome, error) {
	erased, err := s.syncer.EraseStore(ctx, d.StoreID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Status: webhook.StatusSuccess, Erased: erased}, nil
}

// ReplayResult reports one stale-ledger replay run
type ReplayResult struct {
	Found    int `json:"found"`
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
}

// ReplayStale re-dispatches ledger entries stuck in the received state
// longer than olderThan. A crash between registration and finalization
// leaves such entries behind; replay drives them to a terminal status.
// Entries that fail again are finalized as failed and counted.
func (s *Service) ReplayStale(ctx context.Context, olderThan time.Duration, limit int) (*ReplayResult, error) {
	if olderThan <= 0 {
		olderThan = 10 * time.Minute
	}
	if limit <= 0 {
		limit = 100
	}

	entries, err := s.ledger.FindStale(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale deliveries: %w", err)
	}

	result := &ReplayResult{Found: len(entries)}
	for i := range entries {
		entry := &entries[i]
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		event := webhook.ParseEventType(entry.Event)
		d := Delivery{
			StoreID:  entry.StoreID,
			Event:    entry.Event,
			EntityID: entry.EntityID,
			Payload:  entry.Payload,
		}

		outcome, handlerErr := s.dispatch(ctx, event, d)
		if handlerErr != nil {
			result.Failed++
			if finErr := s.ledger.Finalize(ctx, entry.IdempotencyKey, webhook.StatusFailed, handlerErr.Error()); finErr != nil {
				s.logger.Error("failed to finalize replayed ledger entry",
					zap.String("idempotency_key", entry.IdempotencyKey),
					zap.Error(finErr),
				)
			}
			s.recordDelivery(ctx, d, string(webhook.StatusFailed))
			continue
		}

		if finErr := s.ledger.Finalize(ctx, entry.IdempotencyKey, outcome.Status, ""); finErr != nil {
			s.logger.Error("failed to finalize replayed ledger entry",
				zap.String("idempotency_key", entry.IdempotencyKey),
				zap.Error(finErr),
			)
		}
		s.markSeen(ctx, entry.IdempotencyKey)
		s.recordDelivery(ctx, d, string(outcome.Status))
		result.Replayed++
	}

	s.logger.Info("stale webhook replay complete",
		zap.Int("found", result.Found),
		zap.Int("replayed", result.Replayed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// markSeen records the key in the fast-path filter; failures only cost a
// future ledger round trip
func (s *Service) markSeen(ctx context.Context, key string) {
	if !s.config.Enabled {
		return
	}
	if _, err := s.dedup.MarkSeen(ctx, key, s.config.TTL); err != nil {
		s.logger.Warn("failed to mark delivery in dedup store",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}
