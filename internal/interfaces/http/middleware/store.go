package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/infrastructure/logger"
)

// Keys used to expose the resolved store id to handlers and telemetry
const (
	StoreIDKey     = "store_id"
	StoreHeaderKey = "X-Salla-Store-ID"
)

// MaxStoreIDLength bounds header-supplied store ids before they reach logs
// and trace attributes
const MaxStoreIDLength = 64

// StoreMiddlewareConfig holds configuration for store context middleware
type StoreMiddlewareConfig struct {
	// SkipPaths are paths that carry no store context (health, webhook ingress)
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultStoreConfig returns default store middleware configuration
func DefaultStoreConfig() StoreMiddlewareConfig {
	return StoreMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/metrics", "/webhooks"},
	}
}

// StoreContext resolves the store id for dashboard requests and threads it
// through the request context so every log line downstream carries it.
// Resolution order: path parameter, then the store header.
func StoreContext() gin.HandlerFunc {
	return StoreContextWithConfig(DefaultStoreConfig())
}

// StoreContextWithConfig returns store middleware with custom configuration
func StoreContextWithConfig(cfg StoreMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		storeID := c.Param("store_id")
		if storeID == "" {
			storeID = c.GetHeader(StoreHeaderKey)
		}

		if storeID != "" {
			if !validStoreID(storeID) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "ERR_INVALID_INPUT",
						"message": "Invalid store ID format",
					},
				})
				return
			}

			c.Set(StoreIDKey, storeID)

			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithStoreID(ctx, log, storeID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// validStoreID accepts the platform's merchant id format: a short
// alphanumeric token, no separators beyond dash and underscore
func validStoreID(storeID string) bool {
	if len(storeID) == 0 || len(storeID) > MaxStoreIDLength {
		return false
	}
	for _, r := range storeID {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// GetStoreID retrieves the store ID from gin.Context
func GetStoreID(c *gin.Context) string {
	if storeID, exists := c.Get(StoreIDKey); exists {
		if sid, ok := storeID.(string); ok {
			return sid
		}
	}
	return ""
}
