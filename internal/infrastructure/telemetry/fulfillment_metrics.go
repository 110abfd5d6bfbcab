package telemetry

import (
	"context"
	"database/sql"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/event"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the service metrics
const MeterName = "github.com/erp/fulfillment"

// FulfillmentMetrics records confirmation outcomes and latency
type FulfillmentMetrics struct {
	confirmations *TimedCounter
}

// NewFulfillmentMetrics creates the confirmation instruments on meter
func NewFulfillmentMetrics(meter metric.Meter) (*FulfillmentMetrics, error) {
	confirmations, err := NewTimedCounter(meter, TimedCounterOpts{
		CounterName:   "fulfillment.confirmations",
		HistogramName: "fulfillment.confirmation.duration",
		Description:   "Fulfillment confirmation requests by outcome",
		Unit:          "{request}",
		Buckets:       ConfirmationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &FulfillmentMetrics{confirmations: confirmations}, nil
}

// ObserveConfirmation records one confirmation request
func (m *FulfillmentMetrics) ObserveConfirmation(ctx context.Context, outcome string, elapsed time.Duration) {
	m.confirmations.Observe(ctx, elapsed, AttrOutcome.String(outcome))
}

// NotifierStatsSource exposes delivery counters of an async notifier
type NotifierStatsSource interface {
	Stats() event.NotifierStats
}

// RegisterNotifierGauges reports notifier delivery counters
func RegisterNotifierGauges(meter metric.Meter, source NotifierStatsSource) error {
	delivered, err := meter.Int64ObservableCounter("fulfillment.notifications.delivered",
		metric.WithDescription("Notifications delivered to the sink"))
	if err != nil {
		return err
	}
	dropped, err := meter.Int64ObservableCounter("fulfillment.notifications.dropped",
		metric.WithDescription("Notifications dropped because the buffer was full"))
	if err != nil {
		return err
	}
	failed, err := meter.Int64ObservableCounter("fulfillment.notifications.failed",
		metric.WithDescription("Notifications the sink rejected"))
	if err != nil {
		return err
	}
	queued, err := meter.Int64ObservableGauge("fulfillment.notifications.queued",
		metric.WithDescription("Notifications waiting in the buffer"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := source.Stats()
		o.ObserveInt64(delivered, int64(s.Delivered))
		o.ObserveInt64(dropped, int64(s.Dropped))
		o.ObserveInt64(failed, int64(s.Failed))
		o.ObserveInt64(queued, int64(s.Queued))
		return nil
	}, delivered, dropped, failed, queued)
	return err
}

// RegisterDBPoolGauges reports connection pool usage of db
func RegisterDBPoolGauges(meter metric.Meter, db *sql.DB) error {
	conns, err := meter.Int64ObservableGauge("db.client.connections.usage",
		metric.WithDescription("Open database connections by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db.client.connections.wait_count",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := db.Stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrPoolState.String("used")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrPoolState.String("idle")))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, waits)
	return err
}
