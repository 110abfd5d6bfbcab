package middleware

import (
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPRequestDurationBuckets are histogram boundaries for request latency (seconds)
var HTTPRequestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPMetrics records request counts and latency per route
type HTTPMetrics struct {
	requests *telemetry.TimedCounter
}

// NewHTTPMetrics creates the HTTP instruments on meter
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := telemetry.NewTimedCounter(meter, telemetry.TimedCounterOpts{
		CounterName:   "http.server.requests",
		HistogramName: "http.server.request.duration",
		Description:   "HTTP requests served",
		Unit:          "{request}",
		Buckets:       HTTPRequestDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requests: requests}, nil
}

// Middleware records one data point per request
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.response.status_code", strconv.Itoa(c.Writer.Status())),
		}
		if c.Writer.Header().Get("Idempotent-Replayed") == "true" {
			attrs = append(attrs, attribute.Bool("replayed", true))
		}
		m.requests.Observe(c.Request.Context(), time.Since(start), attrs...)
	}
}
