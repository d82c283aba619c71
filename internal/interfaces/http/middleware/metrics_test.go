package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newMetricsMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp.Meter("http.server"), reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func attrValue(set attribute.Set, key attribute.Key) (string, bool) {
	v, ok := set.Value(key)
	if !ok {
		return "", false
	}
	return v.Emit(), true
}

func TestHTTPMetricsDisabledPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for name, cfg := range map[string]HTTPMetricsConfig{
		"disabled":     {Enabled: false},
		"nil provider": {Enabled: true, MeterProvider: nil},
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(HTTPMetrics(cfg))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "ok"})
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetricsRequestCounterLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := newMetricsMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.POST("/webhooks/:store", func(c *gin.Context) {
		c.Set(StoreIDKey, "store-7")
		c.JSON(http.StatusCreated, gin.H{"accepted": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhooks/store-7", strings.NewReader(`{"event":"product/updated"}`))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	m := findMetric(t, reader, "http_server_request_total")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	dp := sum.DataPoints[0]
	assert.Equal(t, int64(1), dp.Value)

	method, _ := attrValue(dp.Attributes, "http.method")
	assert.Equal(t, "POST", method)
	// The counter sees the route pattern, not the expanded path
	route, _ := attrValue(dp.Attributes, "http.route")
	assert.Equal(t, "/webhooks/:store", route)
	status, _ := attrValue(dp.Attributes, "http.status_code")
	assert.Equal(t, "201", status)
	storeID, _ := attrValue(dp.Attributes, "store_id")
	assert.Equal(t, "store-7", storeID)
}

func TestHTTPMetricsDurationAndSizes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := newMetricsMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.POST("/sync", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"added": 10, "updated": 3})
	})

	body := strings.NewReader(`{"kind":"products"}`)
	req, _ := http.NewRequest(http.MethodPost, "/sync", body)
	req.ContentLength = int64(body.Len())
	router.ServeHTTP(httptest.NewRecorder(), req)

	duration := findMetric(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	durHist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, durHist.DataPoints, 1)
	assert.Equal(t, uint64(1), durHist.DataPoints[0].Count)
	// Histograms carry no status label
	_, hasStatus := durHist.DataPoints[0].Attributes.Value("http.status_code")
	assert.False(t, hasStatus)

	reqSize := findMetric(t, reader, "http_server_request_size_bytes")
	require.NotNil(t, reqSize)
	reqHist := reqSize.Data.(metricdata.Histogram[float64])
	require.Len(t, reqHist.DataPoints, 1)
	assert.InDelta(t, 19, reqHist.DataPoints[0].Sum, 0.5)

	respSize := findMetric(t, reader, "http_server_response_size_bytes")
	require.NotNil(t, respSize)
	respHist := respSize.Data.(metricdata.Histogram[float64])
	require.Len(t, respHist.DataPoints, 1)
	assert.Greater(t, respHist.DataPoints[0].Sum, float64(0))
}

func TestHTTPMetricsUnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := newMetricsMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))

	req, _ := http.NewRequest(http.MethodGet, "/definitely/not/registered", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	m := findMetric(t, reader, "http_server_request_total")
	require.NotNil(t, m)

	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	route, _ := attrValue(sum.DataPoints[0].Attributes, "http.route")
	assert.Equal(t, "unknown", route)
	status, _ := attrValue(sum.DataPoints[0].Attributes, "http.status_code")
	assert.Equal(t, "404", status)
}

func TestHTTPMetricsActiveRequestsSettles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := newMetricsMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	m := findMetric(t, reader, "http_server_active_requests")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	// Every increment was paired with a decrement
	assert.Equal(t, int64(0), total)
}

func TestHTTPMetricsWithMeterDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	meter, reader := newMetricsMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, false))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Nil(t, findMetric(t, reader, "http_server_request_total"))
}

func TestRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got string
	router := gin.New()
	router.GET("/api/v1/products/:id", func(c *gin.Context) {
		got = routePattern(c)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/products/42", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/api/v1/products/:id", got)
}
