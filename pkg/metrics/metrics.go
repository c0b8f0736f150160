package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	RegistrationsTotal    *prometheus.CounterVec
	VisitTransitionsTotal *prometheus.CounterVec
	AdmissionsTotal       *prometheus.CounterVec
	TasksPlannedTotal     *prometheus.CounterVec
	TaskCompletionsTotal  *prometheus.CounterVec
	PaymentsTotal         *prometheus.CounterVec
	ExpiredTotal          *prometheus.CounterVec
	PriceLookupsTotal     *prometheus.CounterVec
	EventPublishFailures  prometheus.Counter

	DBQueryDuration *prometheus.HistogramVec
	DBConnections   prometheus.Gauge

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers every metric with reg. Pass prometheus.DefaultRegisterer
// to expose them on MetricsHandler.
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		RegistrationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "registrations_total",
			Help:      "Registrations created by category.",
		}, []string{"category"}),

		VisitTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "visit",
			Name:      "transitions_total",
			Help:      "Registration status transitions by target status.",
		}, []string{"status"}),

		AdmissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "admission",
			Name:      "attempts_total",
			Help:      "Admission attempts by outcome.",
		}, []string{"outcome"}),

		TasksPlannedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "nursing",
			Name:      "tasks_planned_total",
			Help:      "Nurse tasks created from plans by type.",
		}, []string{"type"}),

		TaskCompletionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "nursing",
			Name:      "task_completions_total",
			Help:      "Task completion attempts by outcome.",
		}, []string{"outcome"}),

		PaymentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "billing",
			Name:      "payments_total",
			Help:      "Payment writes by type and resulting status.",
		}, []string{"type", "status"}),

		ExpiredTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "sweep",
			Name:      "expired_total",
			Help:      "Rows expired by the inline sweeps.",
		}, []string{"kind"}),

		PriceLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "billing",
			Name:      "price_lookups_total",
			Help:      "Exam price lookups by result (catalog, fallback).",
		}, []string{"result"}),

		EventPublishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Domain events that could not be published.",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation", "table"}),

		DBConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Current number of open database connections.",
		}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
