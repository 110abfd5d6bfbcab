package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns the otelgin server span middleware followed by a middleware
// that tags the span with request and actor attributes and marks error statuses.
// It returns nothing when tracing is disabled.
func Tracing(serviceName string, enabled bool) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), SpanAttributes()}
}

// SpanAttributes enriches the current span. It must run after otelgin.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Next()

		if actor, ok := GetActor(c); ok {
			span.SetAttributes(
				attribute.String("tenant_id", actor.TenantID.String()),
				attribute.String("user_id", actor.ActorID.String()),
			)
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
