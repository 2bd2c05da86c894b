package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phonemap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phonemap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phonemap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Record metrics
	RecordsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phonemap",
		Subsystem: "records",
		Name:      "added_total",
		Help:      "Total records added",
	})

	RecordsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phonemap",
		Subsystem: "records",
		Name:      "removed_total",
		Help:      "Total records removed",
	})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phonemap",
		Subsystem: "records",
		Name:      "validation_failures_total",
		Help:      "Submissions rejected by validation",
	}, []string{"field"})

	LookupMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phonemap",
		Subsystem: "records",
		Name:      "lookup_misses_total",
		Help:      "Locations that missed the city table and used the fallback region",
	})

	RecordsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phonemap",
		Subsystem: "records",
		Name:      "stored",
		Help:      "Records currently in the collection",
	})

	MarkersSynced = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phonemap",
		Subsystem: "map",
		Name:      "markers_synced",
		Help:      "Markers placed by the last synchronisation",
	})

	EventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phonemap",
		Subsystem: "events",
		Name:      "publish_errors_total",
		Help:      "Record events that failed to publish",
	}, []string{"driver"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phonemap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// fiber resolves the route pattern, which keeps ids out of the label set
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
