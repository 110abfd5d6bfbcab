package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNew_Disabled(t *testing.T) {
	p, err := telemetry.New(context.Background(), config.TelemetryConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestBridge_DisabledReturnsBase(t *testing.T) {
	p, err := telemetry.New(context.Background(), config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	bridged := p.Bridge(base, zapcore.InfoLevel)

	bridged.Info("hello")
	assert.Same(t, base, bridged)
	assert.Equal(t, 1, logs.Len())
}

func TestNew_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping exporter setup in short mode")
	}
	cfg := config.TelemetryConfig{
		Enabled:               true,
		CollectorEndpoint:     "localhost:4317",
		SamplingRatio:         1,
		ServiceName:           "fulfillment-test",
		Insecure:              true,
		MetricsExportInterval: time.Minute,
	}
	p, err := telemetry.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, p.IsEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, telemetry.Sampler(1).Description(), sdktrace.AlwaysSample().Description())
	assert.Contains(t, telemetry.Sampler(0).Description(), sdktrace.NeverSample().Description())
	assert.Contains(t, telemetry.Sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestFulfillmentMetrics_ObserveConfirmation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := telemetry.NewFulfillmentMetrics(provider.Meter(telemetry.MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.ObserveConfirmation(ctx, "confirmed", 40*time.Millisecond)
	m.ObserveConfirmation(ctx, "confirmed", 60*time.Millisecond)
	m.ObserveConfirmation(ctx, "replayed", time.Millisecond)

	metrics := collect(t, reader)

	sum, ok := metrics["fulfillment.confirmations"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byOutcome := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(telemetry.AttrOutcome)
		byOutcome[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"confirmed": 2, "replayed": 1}, byOutcome)

	hist, ok := metrics["fulfillment.confirmation.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

type fixedStats struct{ stats event.NotifierStats }

func (f fixedStats) Stats() event.NotifierStats { return f.stats }

func TestRegisterNotifierGauges(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	source := fixedStats{stats: event.NotifierStats{Delivered: 7, Dropped: 1, Failed: 2, Queued: 3}}
	require.NoError(t, telemetry.RegisterNotifierGauges(provider.Meter(telemetry.MeterName), source))

	metrics := collect(t, reader)

	delivered, ok := metrics["fulfillment.notifications.delivered"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, delivered.DataPoints, 1)
	assert.Equal(t, int64(7), delivered.DataPoints[0].Value)

	queued, ok := metrics["fulfillment.notifications.queued"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, queued.DataPoints, 1)
	assert.Equal(t, int64(3), queued.DataPoints[0].Value)
}

func TestRegisterDBPoolGauges(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	require.NoError(t, telemetry.RegisterDBPoolGauges(provider.Meter(telemetry.MeterName), db))

	metrics := collect(t, reader)
	usage, ok := metrics["db.client.connections.usage"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, usage.DataPoints, 2)
}
