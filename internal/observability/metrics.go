package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vendorq/pkg/domain"
)

const namespace = "vendorq"

// Metrics records service and HTTP outcomes on a private Prometheus registry.
// It satisfies questionnaire.MetricsRecorder and the HTTP adapter's observer.
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
	completion   prometheus.Histogram
	thresholdMet prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors, plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Questionnaire service operations by result.",
		}, []string{"operation", "status"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Questionnaire service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		completion: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_completion_percentage",
			Help:      "Completion percentage of saved submissions.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		thresholdMet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_threshold_met_total",
			Help:      "Saved submissions at or above the onboarding completion threshold.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method, and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.registry.MustRegister(
		m.operations, m.opDuration, m.completion, m.thresholdMet,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe records a service operation outcome.
func (m *Metrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCompletion records the completion of a saved submission.
func (m *Metrics) ObserveCompletion(stats domain.Stats) {
	m.completion.Observe(stats.CompletionPercentage)
	if stats.CompletionPercentage >= domain.CompletionThreshold {
		m.thresholdMet.Inc()
	}
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
