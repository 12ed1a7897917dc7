package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentamate/booking-backend/internal/metrics"
)

// PrometheusMiddleware records request count and latency per route template
func PrometheusMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// unmatched routes share one label so scanners cannot blow up cardinality
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsBasicAuth guards the scrape endpoint when both credentials are configured
func MetricsBasicAuth(user, password string) gin.HandlerFunc {
	if user == "" || password == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return gin.BasicAuth(gin.Accounts{user: password})
}
