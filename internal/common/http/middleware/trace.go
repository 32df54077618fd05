package middleware

import (
	"context"
	"strings"

	"codesandbox/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"

	traceIDContextKey   = "trace_id"
	requestIDContextKey = "request_id"
)

// TraceContextConfig controls how trace/request ids are extracted and written.
type TraceContextConfig struct {
	// TrustIncomingIDs keeps ids supplied by the caller instead of always generating new ones.
	TrustIncomingIDs bool
	// AttachClientIP stores the client ip in the request context for log correlation.
	AttachClientIP bool
}

// TraceContextMiddleware ensures trace/request ids are in context and response headers.
func TraceContextMiddleware() gin.HandlerFunc {
	return TraceContextMiddlewareWithConfig(TraceContextConfig{
		TrustIncomingIDs: true,
		AttachClientIP:   true,
	})
}

// TraceContextMiddlewareWithConfig is the configurable version of TraceContextMiddleware.
func TraceContextMiddlewareWithConfig(cfg TraceContextConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		traceID := incomingID(c, traceIDHeader, cfg.TrustIncomingIDs)
		c.Set(traceIDContextKey, traceID)
		ctx = context.WithValue(ctx, contextkey.TraceID, traceID)
		c.Writer.Header().Set(traceIDHeader, traceID)

		requestID := incomingID(c, requestIDHeader, cfg.TrustIncomingIDs)
		c.Set(requestIDContextKey, requestID)
		ctx = context.WithValue(ctx, contextkey.RequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		if cfg.AttachClientIP {
			ctx = context.WithValue(ctx, contextkey.ClientIP, c.ClientIP())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func incomingID(c *gin.Context, header string, trust bool) string {
	if trust {
		if id := strings.TrimSpace(c.GetHeader(header)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
