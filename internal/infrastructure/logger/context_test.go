package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestContextLogger_AddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActor(ctx, "tenant-1", "user-1")
	ctx = WithIdempotencyKey(ctx, "key-1")

	L(ctx).With(zap.String("order_id", "o-1")).Info("confirmed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "user-1", fields["actor_id"])
	assert.Equal(t, "key-1", fields["idempotency_key"])
	assert.Equal(t, "o-1", fields["order_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestContextLogger_TraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithLogger(ctx, zap.New(core)).Warn("slow")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.Equal(t, traceID.String(), TraceID(ctx))
}

func TestWithLogger_Nil(t *testing.T) {
	assert.NotPanics(t, func() {
		WithLogger(context.Background(), nil).Error("dropped")
	})
}
