package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCORSRouter(cfg CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(CORSWithConfig(cfg))
	r.GET("/hook", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestCORSDefaultRejectsCrossOrigin(t *testing.T) {
	router := newCORSRouter(DefaultCORSConfig())

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	req.Header.Set("Origin", "http://untrusted.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The empty default whitelist means no CORS headers, so the browser
	// blocks the response; the request itself still succeeds.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWhitelistedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"http://dashboard.local:3000"}
	router := newCORSRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	req.Header.Set("Origin", "http://dashboard.local:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://dashboard.local:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID")
}

func TestCORSWildcardDropsCredentialsHeader(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"*"}
	router := newCORSRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"http://dashboard.local:3000"}
	cfg.MaxAge = time.Hour
	router := newCORSRouter(cfg)

	t.Run("whitelisted origin gets headers and 204", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/hook", nil)
		req.Header.Set("Origin", "http://dashboard.local:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://dashboard.local:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin still gets 204, without headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/hook", nil)
		req.Header.Set("Origin", "http://untrusted.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/hook", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("propagates the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/hook", nil)
		req.Header.Set("X-Request-ID", "delivery-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "delivery-42", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "delivery-42", w.Body.String())
	})

	t.Run("mints an id when the caller sends none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/hook", nil)
		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, req)
		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/hook", nil))

		assert.NotEmpty(t, w1.Header().Get("X-Request-ID"))
		assert.NotEqual(t, w1.Header().Get("X-Request-ID"), w2.Header().Get("X-Request-ID"))
	})
}

func TestSecureDefaults(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/hook", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Contains(t, w.Header().Get("Permissions-Policy"), "camera=()")
	// HSTS is off by default; it only makes sense behind TLS.
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecureWithHSTS(t *testing.T) {
	cfg := DefaultSecurityConfig()
	cfg.HSTSEnabled = true
	cfg.HSTSPreload = true

	router := gin.New()
	router.Use(SecureWithConfig(cfg))
	router.GET("/hook", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	hsts := w.Header().Get("Strict-Transport-Security")
	assert.Contains(t, hsts, "max-age=31536000")
	assert.Contains(t, hsts, "includeSubDomains")
	assert.Contains(t, hsts, "preload")
}
