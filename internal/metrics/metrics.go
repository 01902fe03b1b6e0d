package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	businessEnabled atomic.Bool
	systemEnabled   atomic.Bool
)

// Configure switches the business and system collectors on or off.
// Both are off until called; recording functions are no-ops while off.
func Configure(business, system bool) {
	businessEnabled.Store(business)
	systemEnabled.Store(system)
}

// HTTP metrics are registered lazily on the MetricsManager registry.
var (
	httpOnce              sync.Once
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPActiveConnections prometheus.Gauge
	BookingsTotal         *prometheus.CounterVec
)

func initializeHTTPMetrics() {
	httpOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		)

		HTTPRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		)

		HTTPActiveConnections = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Number of active HTTP connections",
			},
		)

		BookingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_bookings_total",
				Help: "Total number of appointment booking attempts",
			},
			[]string{"result"}, // "booked", "rejected", "failed"
		)

		GetInstance().registry.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPActiveConnections,
			BookingsTotal,
		)
	})
}

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if !businessEnabled.Load() {
		return
	}
	initializeHTTPMetrics()

	status := strconv.Itoa(statusCode)
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordBooking records the outcome of a booking attempt
func RecordBooking(result string) {
	if !businessEnabled.Load() {
		return
	}
	initializeHTTPMetrics()

	BookingsTotal.WithLabelValues(result).Inc()
}

// IncActiveConnections increments active connections
func IncActiveConnections() {
	if !businessEnabled.Load() {
		return
	}
	initializeHTTPMetrics()

	HTTPActiveConnections.Inc()
}

// DecActiveConnections decrements active connections
func DecActiveConnections() {
	if !businessEnabled.Load() {
		return
	}
	initializeHTTPMetrics()

	HTTPActiveConnections.Dec()
}
