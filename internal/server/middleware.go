package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/internal/logger"
)

const (
	traceIDHeader = "X-Trace-Id"
	traceIDKey    = "trace_id"
)

// traceMiddleware ensures every request carries a trace id, echoed in the
// response header and stored on the request context for logging.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(traceIDKey, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Writer.Header().Set(traceIDHeader, id)
		c.Next()
	}
}

func traceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// accessLog logs one line per request and records HTTP metrics.
func accessLog(log *zap.Logger, m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		logger.FromContext(c.Request.Context(), log).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		)
	}
}

// limitBody rejects request bodies larger than max bytes.
func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > max {
			abort(c, CodeTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
