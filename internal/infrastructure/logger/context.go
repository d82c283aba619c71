package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey keeps logger context values from colliding with other packages.
type contextKey string

const (
	// LoggerKey carries the request-scoped logger
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the request id
	RequestIDKey contextKey = "request_id"
	// StoreIDKey carries the resolved store id
	StoreIDKey contextKey = "store_id"
)

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a nop logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores requestID in ctx and returns the context together
// with a logger that stamps the id on every entry. The SQL logger reads the
// id back via GetRequestID.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithStoreID stores storeID in ctx and returns the context together with a
// logger that stamps the id on every entry.
func WithStoreID(ctx context.Context, logger *zap.Logger, storeID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, StoreIDKey, storeID)
	enriched := logger.With(zap.String("store_id", storeID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request id stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetStoreID returns the store id stored in ctx, or "".
func GetStoreID(ctx context.Context) string {
	if storeID, ok := ctx.Value(StoreIDKey).(string); ok {
		return storeID
	}
	return ""
}

// GetTraceID returns the active span's trace id, or "" when no sampled span
// is in ctx.
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.TraceID().IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// GetSpanID returns the active span's id, or "".
func GetSpanID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.SpanID().IsValid() {
		return ""
	}
	return spanCtx.SpanID().String()
}

// WithTraceContext stamps trace_id and span_id on the logger. Without a
// valid span the logger comes back unchanged so log lines stay clean.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		return logger
	}
	return logger.With(
		zap.String("trace_id", traceID),
		zap.String("span_id", GetSpanID(ctx)),
	)
}
