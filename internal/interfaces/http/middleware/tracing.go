// Package middleware provides HTTP middleware for the synchronization backend.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps header-supplied request ids before they reach
// trace attributes.
const MaxRequestIDLength = 128

// TracingConfig configures the otelgin wrapper.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "storesync-backend",
		Enabled:     true,
	}
}

// Tracing returns the HTTP tracing middleware with defaults applied.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin, which names spans "METHOD route"
// (e.g. "POST /api/v1/stores/:store_id/sync/:kind").
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector stamps the active span with request and store
// metadata. It must sit after Tracing in the chain so the span exists,
// and it stamps before c.Next so the attributes land while the span is
// still recording.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			if requestID := getTraceRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if storeID := getTraceStoreID(c); storeID != "" {
				span.SetAttributes(attribute.String("store_id", storeID))
			}
		}
		c.Next()
	}
}

// getTraceRequestID prefers the id minted by the RequestID middleware;
// header values are truncated so oversized headers cannot bloat spans.
func getTraceRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// getTraceStoreID prefers the store id resolved by the store middleware.
// Raw header values must pass the same format gate to keep junk out of
// trace attributes.
func getTraceStoreID(c *gin.Context) string {
	if storeID := GetStoreID(c); storeID != "" {
		return storeID
	}
	if headerStoreID := c.GetHeader(StoreHeaderKey); headerStoreID != "" && validStoreID(headerStoreID) {
		return headerStoreID
	}
	return ""
}

// SpanErrorMarker flags the span on 4xx/5xx responses. It runs the rest
// of the chain first, so it has to sit after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, statusDescription(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

func statusDescription(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusUnauthorized:
		return "Unauthorized"
	case status == http.StatusForbidden:
		return "Forbidden"
	case status == http.StatusNotFound:
		return "Not Found"
	default:
		return "Client Error"
	}
}
