package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey         contextKey = "logger"
	requestIDKey      contextKey = "request_id"
	tenantIDKey       contextKey = "tenant_id"
	actorIDKey        contextKey = "actor_id"
	idempotencyKeyKey contextKey = "idempotency_key"
)

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request id used for correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActor stores the tenant and actor of the current request
func WithActor(ctx context.Context, tenantID, actorID string) context.Context {
	ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	return context.WithValue(ctx, actorIDKey, actorID)
}

// WithIdempotencyKey stores the caller supplied idempotency key
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyKey, key)
}

// RequestID returns the stored request id, or ""
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// TenantID returns the stored tenant id, or ""
func TenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// TraceID returns the active span's trace id, or "" when there is none
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// ContextLogger decorates every entry with request, actor and trace
// correlation fields pulled from its context.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger over the logger attached to ctx.
//
//	logger.L(ctx).Info("order confirmed", zap.String("order_id", id))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger returns a ContextLogger over an explicit logger
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) fields() []zap.Field {
	var fields []zap.Field
	for _, key := range []contextKey{requestIDKey, tenantIDKey, actorIDKey, idempotencyKeyKey} {
		if v := stringValue(cl.ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	sc := trace.SpanFromContext(cl.ctx).SpanContext()
	if sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return fields
}

// Zap returns the underlying logger with correlation fields applied
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.logger.With(cl.fields()...)
}

// With returns a child ContextLogger with extra fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }
