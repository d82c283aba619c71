package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/interfaces/http/dto"
)

func errorEnvelope(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func serveError(t *testing.T, err error, mutate ...func(*gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var h BaseHandler
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	for _, m := range mutate {
		m(c)
	}
	h.HandleError(c, err)
	return w
}

func TestHandleErrorDomainError(t *testing.T) {
	w := serveError(t, shared.NewDomainError("MISSING_STORE_ID", "Store ID is required"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := errorEnvelope(t, w)
	assert.Equal(t, dto.ErrCodeValidationRequired, resp.Error.Code)
	assert.Equal(t, "Store ID is required", resp.Error.Message)
}

func TestHandleErrorNotFoundSentinel(t *testing.T) {
	w := serveError(t, shared.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, errorEnvelope(t, w).Error.Code)
}

func TestHandleErrorUpstreamFailures(t *testing.T) {
	cases := []struct {
		err      error
		wantCode string
	}{
		{integration.ErrPlatformAuthFailed, dto.ErrCodeUpstreamAuth},
		{integration.ErrPlatformRateLimited, dto.ErrCodeUpstreamRateLimited},
		{integration.ErrPlatformUnavailable, dto.ErrCodeUpstreamUnavailable},
	}
	for _, tc := range cases {
		w := serveError(t, tc.err)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, tc.wantCode, errorEnvelope(t, w).Error.Code)
	}
}

func TestHandleErrorOpaqueInternal(t *testing.T) {
	w := serveError(t, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := errorEnvelope(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, assert.AnError.Error())
}

func TestErrorResponseCarriesMintedRequestID(t *testing.T) {
	// The RequestID middleware stores generated ids in the gin context
	// only; they never appear on the inbound request.
	w := serveError(t, assert.AnError, func(c *gin.Context) {
		c.Set("request_id", "generated-id-1")
	})

	assert.Equal(t, "generated-id-1", errorEnvelope(t, w).Error.RequestID)
}

func TestErrorResponseFallsBackToRequestIDHeader(t *testing.T) {
	w := serveError(t, assert.AnError, func(c *gin.Context) {
		c.Request.Header.Set("X-Request-ID", "caller-id-7")
	})

	assert.Equal(t, "caller-id-7", errorEnvelope(t, w).Error.RequestID)
}
