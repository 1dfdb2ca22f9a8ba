// Package requestlog stamps a request id on every request, logs its start and
// completion and records the HTTP metrics
package requestlog

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/metrics"
)

const (
	HeaderRequestID = "X-Request-ID"
	KeyRequestID    = "request_id"
)

// New returns the request logging middleware
func New() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		log := logger.HTTP()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Set(KeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		log.Debug("Request started",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		c.Next()

		latency := time.Since(startTime)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), latency)

		logLevel := log.Info
		if status >= 500 {
			logLevel = log.Error
		} else if status >= 400 {
			logLevel = log.Warn
		}

		logLevel("Request completed",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}

// RequestID returns the id stamped on the request, if any
func RequestID(c *gin.Context) string {
	return c.GetString(KeyRequestID)
}

func generateRequestID() string {
	return "req_" + uuid.NewString()
}
