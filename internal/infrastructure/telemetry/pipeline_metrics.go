// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PipelineMetrics provides metrics for the webhook ingestion and sync pipeline.
// It tracks webhook deliveries, sync activity, and per-store entity counts.
type PipelineMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	webhookEventTotal *Counter
	syncItemTotal     *Counter

	// Histogram metrics
	bulkSyncDuration *Histogram

	// Gauge metrics (point-in-time values)
	storeEntityCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	countProvider EntityCountProvider
}

// EntityCountProvider provides per-store entity counts for periodic metrics
// collection. This interface allows the telemetry layer to query synced state
// without depending on the persistence layer directly.
type EntityCountProvider interface {
	// GetEntityCounts returns the number of locally synced rows per entity
	// kind (e.g., "product", "order") for a store.
	GetEntityCounts(ctx context.Context, storeID string) (map[string]int64, error)
}

// PipelineMetricsConfig holds configuration for pipeline metrics.
type PipelineMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	CountProvider   EntityCountProvider
}

// NewPipelineMetrics creates a new PipelineMetrics instance.
func NewPipelineMetrics(cfg PipelineMetricsConfig) (*PipelineMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PipelineMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		countProvider: cfg.CountProvider,
	}

	var err error

	pm.webhookEventTotal, err = NewCounter(
		cfg.Meter,
		"storesync_webhook_event_total",
		"Total number of webhook deliveries received",
		"{deliveries}",
	)
	if err != nil {
		return nil, err
	}

	pm.syncItemTotal, err = NewCounter(
		cfg.Meter,
		"storesync_sync_item_total",
		"Total number of entities written during sync operations",
		"{entities}",
	)
	if err != nil {
		return nil, err
	}

	pm.bulkSyncDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "storesync_bulk_sync_duration_seconds",
		Description: "Bulk sync run duration distribution in seconds",
		Unit:        "s",
		Boundaries:  []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	if err != nil {
		return nil, err
	}

	pm.storeEntityCount, err = NewGauge(
		cfg.Meter,
		"storesync_store_entity_count",
		"Number of locally synced entities per store and kind",
		"{entities}",
	)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// =============================================================================
// Webhook Metrics
// =============================================================================

// RecordWebhookEvent records a processed webhook delivery.
// Outcome is the ledger outcome string (success, failed, skipped, duplicate).
func (pm *PipelineMetrics) RecordWebhookEvent(ctx context.Context, storeID, eventType, outcome string) {
	pm.webhookEventTotal.Inc(ctx,
		AttrStoreID.String(storeID),
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	)
}

// =============================================================================
// Sync Metrics
// =============================================================================

// RecordSyncItems records entities written (or failed) during a sync run.
func (pm *PipelineMetrics) RecordSyncItems(ctx context.Context, storeID, entityKind, outcome string, count int64) {
	if count <= 0 {
		return
	}
	pm.syncItemTotal.Add(ctx, count,
		AttrStoreID.String(storeID),
		AttrEntityKind.String(entityKind),
		AttrOutcome.String(outcome),
	)
}

// RecordBulkSyncDuration records how long a bulk sync run took.
func (pm *PipelineMetrics) RecordBulkSyncDuration(ctx context.Context, entityKind string, d time.Duration) {
	pm.bulkSyncDuration.RecordDuration(ctx, d,
		AttrEntityKind.String(entityKind),
	)
}

// RecordEntityCount records the current synced row count for a store and kind.
// This is a gauge metric that should be updated periodically.
func (pm *PipelineMetrics) RecordEntityCount(ctx context.Context, storeID, entityKind string, count int64) {
	pm.storeEntityCount.Record(ctx, count,
		AttrStoreID.String(storeID),
		AttrEntityKind.String(entityKind),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StoreProvider provides connected store IDs for periodic metrics collection.
type StoreProvider interface {
	GetConnectedStoreIDs(ctx context.Context) ([]string, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects entity counts every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (pm *PipelineMetrics) StartPeriodicCollection(ctx context.Context, storeProvider StoreProvider, interval time.Duration) {
	pm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go pm.runPeriodicCollection(ctx, storeProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (pm *PipelineMetrics) runPeriodicCollection(ctx context.Context, storeProvider StoreProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	pm.collectEntityCounts(ctx, storeProvider)

	for {
		select {
		case <-pm.stopChan:
			pm.logger.Info("Stopping periodic pipeline metrics collection")
			return
		case <-ctx.Done():
			pm.logger.Info("Context cancelled, stopping periodic pipeline metrics collection")
			return
		case <-ticker.C:
			pm.collectEntityCounts(ctx, storeProvider)
		}
	}
}

// collectEntityCounts collects entity count gauges for all connected stores.
func (pm *PipelineMetrics) collectEntityCounts(ctx context.Context, storeProvider StoreProvider) {
	if pm.countProvider == nil {
		pm.logger.Debug("No entity count provider configured, skipping entity count collection")
		return
	}

	storeIDs, err := storeProvider.GetConnectedStoreIDs(ctx)
	if err != nil {
		pm.logger.Error("Failed to get store IDs for metrics collection", zap.Error(err))
		return
	}

	for _, storeID := range storeIDs {
		pm.collectStoreEntityCounts(ctx, storeID)
	}
}

// collectStoreEntityCounts collects entity counts for a single store.
func (pm *PipelineMetrics) collectStoreEntityCounts(ctx context.Context, storeID string) {
	counts, err := pm.countProvider.GetEntityCounts(ctx, storeID)
	if err != nil {
		pm.logger.Warn("Failed to get entity counts for store",
			zap.String("store_id", storeID),
			zap.Error(err),
		)
		return
	}

	for kind, count := range counts {
		pm.RecordEntityCount(ctx, storeID, kind, count)
	}
}

// Stop stops the periodic collection.
func (pm *PipelineMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPipelineMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
