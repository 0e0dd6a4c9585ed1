package inference

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
)

// HeaderRequestID carries the request id on requests and responses.
const HeaderRequestID = "X-Request-Id"

const slowRequest = 500 * time.Millisecond

// Recovery recovers from handler panics, logs the stack and answers 500.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered", map[string]interface{}{
					logger.FieldError: fmt.Sprintf("%v", err),
					"stack":           string(debug.Stack()),
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
				})
				RespondError(c, fmt.Errorf("panic: %v", err))
			}
		}()
		c.Next()
	}
}

// RequestID propagates X-Request-Id, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs each request and records request metrics when m is
// non-nil. Health and readiness probes are skipped.
func RequestLogger(log *logger.Logger, service string, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if systemPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		if m != nil {
			m.RecordRequestStart(ctx)
		}
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.RecordRequestEnd(ctx, service, route, strconv.Itoa(status), latency)
		}

		fields := map[string]interface{}{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             status,
			logger.FieldDuration: latency.Milliseconds(),
			"request_id":         c.GetString("request_id"),
		}
		if latency > slowRequest {
			fields["slow"] = true
		}
		switch {
		case status >= 500:
			log.Error("request failed", fields)
		case status >= 400:
			log.Warn("request rejected", fields)
		default:
			log.Debug("request served", fields)
		}
	}
}
