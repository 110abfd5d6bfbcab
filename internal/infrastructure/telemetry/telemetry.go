// Package telemetry wires OpenTelemetry traces, metrics and logs to an OTLP collector.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ServiceVersion is reported as service.version
const ServiceVersion = "1.0.0"

// Provider owns the tracer, meter and logger providers of one process.
// When telemetry is disabled every accessor falls back to the otel no-op globals.
type Provider struct {
	cfg    config.TelemetryConfig
	logger *zap.Logger

	tracer *tracerProvider
	meter  *meterProvider
	logs   *loggerProvider
}

// New builds the providers and installs them as otel globals
func New(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Provider, error) {
	p := &Provider{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled, using no-op providers")
		return p, nil
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	if p.tracer, err = newTracerProvider(ctx, cfg, res); err != nil {
		return nil, err
	}
	if p.meter, err = newMeterProvider(ctx, cfg, res); err != nil {
		_ = p.tracer.shutdown(ctx)
		return nil, err
	}
	if p.logs, err = newLoggerProvider(ctx, cfg, res); err != nil {
		_ = p.tracer.shutdown(ctx)
		_ = p.meter.shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(p.tracer.provider)
	otel.SetMeterProvider(p.meter.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Duration("metrics_export_interval", cfg.MetricsExportInterval),
		zap.String("service_name", cfg.ServiceName),
	)
	return p, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// IsEnabled reports whether telemetry is exported
func (p *Provider) IsEnabled() bool {
	return p.cfg.Enabled && p.tracer != nil
}

// Tracer returns a named tracer
func (p *Provider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracer == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.tracer.provider.Tracer(name, opts...)
}

// Meter returns a named meter
func (p *Provider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.meter == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.meter.provider.Meter(name, opts...)
}

// Shutdown flushes and stops every provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.IsEnabled() {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := errors.Join(
		p.tracer.shutdown(shutdownCtx),
		p.meter.shutdown(shutdownCtx),
		p.logs.shutdown(shutdownCtx),
	)
	if err != nil {
		p.logger.Error("Error shutting down telemetry", zap.Error(err))
		return fmt.Errorf("failed to shutdown telemetry: %w", err)
	}
	p.logger.Info("OpenTelemetry shutdown complete")
	return nil
}
