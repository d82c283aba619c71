package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func storeTestRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var captured string
	r := gin.New()
	r.Use(StoreContext())
	r.GET("/api/v1/stores/:store_id/ping", func(c *gin.Context) {
		captured = GetStoreID(c)
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, &captured
}

func TestStoreContextFromPathParam(t *testing.T) {
	r, captured := storeTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/42/ping", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", *captured)
}

func TestStoreContextRejectsMalformedID(t *testing.T) {
	r, _ := storeTestRouter()

	for _, bad := range []string{"store%20id", "a;drop", "id!"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+bad+"/ping", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestStoreContextSkipsHealthPath(t *testing.T) {
	r, _ := storeTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(StoreHeaderKey, "not!valid!")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidStoreID(t *testing.T) {
	assert.True(t, validStoreID("42"))
	assert.True(t, validStoreID("store_42-a"))
	assert.False(t, validStoreID(""))
	assert.False(t, validStoreID("has space"))
	assert.False(t, validStoreID(string(make([]byte, 65))))
}
