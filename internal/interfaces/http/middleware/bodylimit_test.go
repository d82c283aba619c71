package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storesync/backend/internal/interfaces/http/dto"
)

func limitedRouter(maxBytes int64, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(maxBytes))
	if handler == nil {
		handler = func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	}
	router.POST("/deliveries", handler)
	router.GET("/deliveries", handler)
	return router
}

func TestBodyLimitAllowsSmallPayload(t *testing.T) {
	router := limitedRouter(1024, nil)

	req := httptest.NewRequest(http.MethodPost, "/deliveries", bytes.NewReader([]byte(`{"event":"product.updated"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyLimitRejectsByContentLength(t *testing.T) {
	router := limitedRouter(100, nil)

	req := httptest.NewRequest(http.MethodPost, "/deliveries", strings.NewReader(strings.Repeat("x", 200)))
	req.ContentLength = 200
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodePayloadTooLarge, resp.Error.Code)
}

func TestBodyLimitIgnoresBodylessRequests(t *testing.T) {
	router := limitedRouter(10, nil)

	req := httptest.NewRequest(http.MethodGet, "/deliveries", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyLimitCapsStreamingBody(t *testing.T) {
	// No Content-Length, so the reject-early path cannot fire; the
	// MaxBytesReader has to stop the handler mid-read instead.
	router := limitedRouter(50, func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "body too large")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/deliveries", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
