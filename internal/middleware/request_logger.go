package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentamate/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured line per request
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		client := utils.ParseUserAgent(utils.GetUserAgent(c))
		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"status":      status,
			"size":        c.Writer.Size(),
			"latency":     time.Since(start).String(),
			"client_ip":   utils.GetRealIP(c),
			"device_type": client.DeviceType,
			"browser":     client.Browser,
			"os":          client.OS,
		})

		if userCtx, ok := GetUserContext(c); ok {
			entry = entry.WithField("user_id", userCtx.UserID)
		}

		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("request failed")
		case status >= 500:
			entry.Error("server error")
		case status >= 400:
			entry.Warn("client error")
		default:
			entry.Info("request completed")
		}
	}
}
