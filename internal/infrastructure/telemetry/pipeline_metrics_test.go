package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storesync/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewPipelineMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, pm)
}

func TestNewPipelineMetrics_NilMeter(t *testing.T) {
	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, pm)
	assert.Equal(t, "NewPipelineMetrics: meter cannot be nil", err.Error())
}

func TestPipelineMetrics_RecordWebhookEvent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	pm.RecordWebhookEvent(ctx, "42", "product/updated", "success")
	pm.RecordWebhookEvent(ctx, "42", "order/created", "duplicate")
	pm.RecordWebhookEvent(ctx, "42", "coupon/created", "skipped")
}

func TestPipelineMetrics_RecordSyncItems(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic; zero and negative counts are ignored
	pm.RecordSyncItems(ctx, "42", "product", "success", 25)
	pm.RecordSyncItems(ctx, "42", "order", "failed", 2)
	pm.RecordSyncItems(ctx, "42", "product", "success", 0)
	pm.RecordSyncItems(ctx, "42", "product", "success", -5)
}

func TestPipelineMetrics_RecordBulkSyncDuration(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	pm.RecordBulkSyncDuration(ctx, "product", 1500*time.Millisecond)
	pm.RecordBulkSyncDuration(ctx, "order", 30*time.Second)
}

func TestPipelineMetrics_RecordEntityCount(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	pm.RecordEntityCount(ctx, "42", "product", 120)
	pm.RecordEntityCount(ctx, "42", "order", 47)
}

// Mock implementations for testing periodic collection

type mockStoreProvider struct {
	storeIDs []string
	err      error
}

func (m *mockStoreProvider) GetConnectedStoreIDs(ctx context.Context) ([]string, error) {
	return m.storeIDs, m.err
}

type mockCountProvider struct {
	counts map[string]int64
	err    error
}

func (m *mockCountProvider) GetEntityCounts(ctx context.Context, storeID string) (map[string]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

func TestPipelineMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	countProvider := &mockCountProvider{
		counts: map[string]int64{
			"product":  100,
			"order":    40,
			"checkout": 7,
		},
	}

	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter:         meter,
		Logger:        zap.NewNop(),
		CountProvider: countProvider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeProvider := &mockStoreProvider{
		storeIDs: []string{"42", "100"},
	}

	// Start periodic collection with short interval for testing
	pm.StartPeriodicCollection(ctx, storeProvider, 100*time.Millisecond)

	// Wait for at least one collection cycle
	time.Sleep(150 * time.Millisecond)

	// Stop collection
	pm.Stop()

	// Should complete without error
}

func TestPipelineMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
		// No count provider
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeProvider := &mockStoreProvider{
		storeIDs: []string{"42"},
	}

	// Should not panic with no count provider
	pm.StartPeriodicCollection(ctx, storeProvider, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	pm.Stop()
}

func TestPipelineMetrics_PeriodicCollection_ProviderErrors(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter:         meter,
		Logger:        zap.NewNop(),
		CountProvider: &mockCountProvider{err: errors.New("db down")},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeProvider := &mockStoreProvider{
		storeIDs: []string{"42"},
	}

	// Count provider failures are logged, never fatal
	pm.StartPeriodicCollection(ctx, storeProvider, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	pm.Stop()
}

func TestPipelineMetrics_Stop_Idempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	// Calling Stop multiple times should not panic
	pm.Stop()
	pm.Stop()
	pm.Stop()
}

func TestPipelineMetrics_StartPeriodicCollection_OnlyOnce(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	pm, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeProvider := &mockStoreProvider{
		storeIDs: []string{},
	}

	// Calling StartPeriodicCollection multiple times should only start once
	pm.StartPeriodicCollection(ctx, storeProvider, time.Hour)
	pm.StartPeriodicCollection(ctx, storeProvider, time.Minute)
	pm.StartPeriodicCollection(ctx, storeProvider, time.Second)

	pm.Stop()
}
