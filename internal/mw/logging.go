package mw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ward-status-backend/internal/metrics"
)

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status_code": c.Writer.Status(),
			"client_ip":   c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if user := CurrentUser(c); user != nil {
			entry = entry.WithField("user_id", user.ID)
		}
		if c.Writer.Status() >= 500 {
			entry.Error("HTTP request failed")
		} else if c.Writer.Status() >= 400 {
			entry.Warn("HTTP request completed with error")
		} else {
			entry.Info("HTTP request completed")
		}
	}
}

// Metrics records request durations by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
