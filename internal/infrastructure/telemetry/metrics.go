package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const defaultMetricsExportInterval = time.Minute

type meterProvider struct {
	provider *sdkmetric.MeterProvider
}

func newMeterProvider(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource) (*meterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	interval := cfg.MetricsExportInterval
	if interval <= 0 {
		interval = defaultMetricsExportInterval
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	return &meterProvider{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader)),
	}, nil
}

func (m *meterProvider) shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// TimedCounterOpts names the two instruments of a TimedCounter
type TimedCounterOpts struct {
	CounterName   string
	HistogramName string
	Description   string
	// Unit of the counter; the histogram is always in seconds
	Unit    string
	Buckets []float64
}

// TimedCounter counts operations and records their latency under the same attributes
type TimedCounter struct {
	count    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTimedCounter creates both instruments on meter
func NewTimedCounter(meter metric.Meter, opts TimedCounterOpts) (*TimedCounter, error) {
	count, err := meter.Int64Counter(opts.CounterName,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", opts.CounterName, err)
	}

	histOpts := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit("s"),
	}
	if len(opts.Buckets) > 0 {
		histOpts = append(histOpts, metric.WithExplicitBucketBoundaries(opts.Buckets...))
	}
	duration, err := meter.Float64Histogram(opts.HistogramName, histOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", opts.HistogramName, err)
	}
	return &TimedCounter{count: count, duration: duration}, nil
}

// Observe adds one to the counter and records elapsed
func (t *TimedCounter) Observe(ctx context.Context, elapsed time.Duration, attrs ...attribute.KeyValue) {
	set := metric.WithAttributeSet(attribute.NewSet(attrs...))
	t.count.Add(ctx, 1, set)
	t.duration.Record(ctx, elapsed.Seconds(), set)
}

var (
	AttrOutcome   = attribute.Key("outcome")
	AttrPoolState = attribute.Key("db.pool.state")
)

// ConfirmationDurationBuckets spans a single-row commit up to a lock wait timing out (seconds)
var ConfirmationDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
