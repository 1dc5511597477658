package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// Logger assigns a request ID (reusing the caller's if given) and logs each
// completed request. Health checks are not logged.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		if path == "/health" {
			return
		}
		latency := time.Since(start)
		status := c.Writer.Status()
		log := logger.With(
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"client_ip", c.ClientIP(),
			"status", status,
			"latency_ms", latency.Milliseconds(),
		)
		if len(c.Errors) > 0 {
			log = log.With("errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			log.Error("request completed with server error")
		case status >= 400:
			log.Warn("request completed with client error")
		default:
			log.Info("request completed")
		}
	}
}

// RequestID returns the ID assigned by Logger, or "" outside it.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
