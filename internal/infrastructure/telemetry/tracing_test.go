package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/storesync/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans swaps in an in-memory recorder as the global tracer provider
// for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[string]interface{} {
	out := make(map[string]interface{}, len(span.Attributes()))
	for _, attr := range span.Attributes() {
		out[string(attr.Key)] = attr.Value.AsInterface()
	}
	return out
}

func TestStartServiceSpanNaming(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "webhook", "process",
		telemetry.SpanAttrStoreID.String("store-1"),
		telemetry.SpanAttrEventType.String("product/updated"),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "webhook.process", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "store-1", attrs["store_id"])
	assert.Equal(t, "product/updated", attrs["event_type"])
}

func TestStartServiceSpanNesting(t *testing.T) {
	sr := recordSpans(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "sync", "bulk_sync")
	_, child := telemetry.StartServiceSpan(ctx, "sync", "page")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = s
	}
	parentSpan, childSpan := byName["sync.bulk_sync"], byName["sync.page"]
	require.NotNil(t, parentSpan)
	require.NotNil(t, childSpan)

	assert.Equal(t, parentSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID())
	assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
}

func TestRecordErrorSetsStatus(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "webhook", "process")
	telemetry.RecordError(span, errors.New("upstream fetch timed out"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "upstream fetch timed out", spans[0].Status().Description)

	events := spans[0].Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "exception", events[0].Name)
}

func TestRecordErrorNilError(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "webhook", "process")
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestRecordErrorNilSpan(t *testing.T) {
	telemetry.RecordError(nil, errors.New("ignored"))
}
