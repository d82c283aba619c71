package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies business spans started by the application layer.
const TracerName = "storesync-backend"

// Typed keys for business span attributes. Callers build values through the
// key's String/Int helpers so attribute names stay consistent across spans.
// Metric labels live in metrics.go; the two sets share names on purpose.
var (
	SpanAttrStoreID = attribute.Key("store_id")

	SpanAttrEntityKind = attribute.Key("entity_kind")
	SpanAttrEntityID   = attribute.Key("entity_id")

	SpanAttrEventType      = attribute.Key("event_type")
	SpanAttrIdempotencyKey = attribute.Key("idempotency_key")
	SpanAttrOutcome        = attribute.Key("outcome")

	SpanAttrPage       = attribute.Key("page")
	SpanAttrItemsTotal = attribute.Key("items_total")
	SpanAttrErrors     = attribute.Key("errors")
)

// StartServiceSpan starts an internal span named {service}.{method}, the
// convention for application service entry points. The caller owns span.End().
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError records err on the span and flips the span status to error.
// Nil spans and nil errors are tolerated so call sites need no guard.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
