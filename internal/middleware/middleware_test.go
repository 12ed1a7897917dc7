package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	router := gin.New()
	router.Use(PrometheusMiddleware(m))
	router.GET("/bookings/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/bookings/a", "/bookings/b", "/nope"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/bookings/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest("GET", "/ok?x=1", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	router.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"path":"/ok"`)
	assert.Contains(t, out, `"query":"x=1"`)
	assert.Contains(t, out, `"browser":"Chrome"`)
	assert.Contains(t, out, "request completed")

	buf.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/boom", nil))
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestMetricsBasicAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	open := gin.New()
	open.GET("/metrics", MetricsBasicAuth("", ""), ok)
	w := httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	guarded := gin.New()
	guarded.GET("/metrics", MetricsBasicAuth("prom", "secret"), ok)

	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.SetBasicAuth("prom", "secret")
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
