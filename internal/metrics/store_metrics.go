package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	storeOnce               sync.Once
	storeOperationsTotal    *prometheus.CounterVec
	storeOperationDuration  *prometheus.HistogramVec
	searchFailuresTotal     *prometheus.CounterVec
	unresolvedReferences    *prometheus.CounterVec
	ingestionResourcesTotal *prometheus.CounterVec
	ingestionDuration       *prometheus.HistogramVec
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
)

func initializeStoreMetrics() {
	storeOnce.Do(func() {
		storeOperationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_store_operations_total",
				Help: "Total number of resource store operations",
			},
			[]string{"operation", "resource_type", "status"},
		)

		storeOperationDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinic_store_operation_duration_seconds",
				Help:    "Time spent in resource store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "resource_type"},
		)

		searchFailuresTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_store_search_swallowed_failures_total",
				Help: "Backend failures turned into empty search results",
			},
			[]string{"resource_type"},
		)

		unresolvedReferences = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_unresolved_references_total",
				Help: "References that fell back to a display default",
			},
			[]string{"reason"}, // "malformed", "dangling"
		)

		ingestionResourcesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_ingestion_resources_total",
				Help: "Resources processed by the FHIR ingestion job",
			},
			[]string{"resource_type", "result"},
		)

		ingestionDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinic_ingestion_duration_seconds",
				Help:    "Time spent ingesting one FHIR resource type",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource_type", "status"},
		)

		upstreamRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_upstream_requests_total",
				Help: "HTTP requests made to upstream services",
			},
			[]string{"target", "status_code"},
		)

		upstreamRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinic_upstream_request_duration_seconds",
				Help:    "Time spent in HTTP requests to upstream services",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		)

		GetInstance().registry.MustRegister(
			storeOperationsTotal,
			storeOperationDuration,
			searchFailuresTotal,
			unresolvedReferences,
			ingestionResourcesTotal,
			ingestionDuration,
			upstreamRequestsTotal,
			upstreamRequestDuration,
		)
	})
}

// RecordStoreOperation records one store call and its outcome
func RecordStoreOperation(operation, resourceType, status string, duration time.Duration) {
	if !businessEnabled.Load() {
		return
	}
	initializeStoreMetrics()

	storeOperationsTotal.WithLabelValues(operation, resourceType, status).Inc()
	storeOperationDuration.WithLabelValues(operation, resourceType).Observe(duration.Seconds())
}

// RecordSearchFailure counts a backend failure hidden behind an empty search
func RecordSearchFailure(resourceType string) {
	if !businessEnabled.Load() {
		return
	}
	initializeStoreMetrics()

	searchFailuresTotal.WithLabelValues(resourceType).Inc()
}

// RecordUnresolvedReference counts a reference that degraded to a fallback
func RecordUnresolvedReference(reason string) {
	if !businessEnabled.Load() {
		return
	}
	initializeStoreMetrics()

	unresolvedReferences.WithLabelValues(reason).Inc()
}

// RecordIngestion records metrics for one ingested resource type
func RecordIngestion(resourceType string, startTime time.Time, status string, stored, failed int) {
	if !businessEnabled.Load() {
		return
	}
	initializeStoreMetrics()

	ingestionDuration.WithLabelValues(resourceType, status).Observe(time.Since(startTime).Seconds())
	ingestionResourcesTotal.WithLabelValues(resourceType, "stored").Add(float64(stored))
	if failed > 0 {
		ingestionResourcesTotal.WithLabelValues(resourceType, "failed").Add(float64(failed))
	}
}

// RecordUpstreamRequest records an outbound HTTP call; statusCode 0 means transport failure
func RecordUpstreamRequest(target string, startTime time.Time, statusCode int) {
	if !businessEnabled.Load() {
		return
	}
	initializeStoreMetrics()

	upstreamRequestsTotal.WithLabelValues(target, strconv.Itoa(statusCode)).Inc()
	upstreamRequestDuration.WithLabelValues(target).Observe(time.Since(startTime).Seconds())
}
