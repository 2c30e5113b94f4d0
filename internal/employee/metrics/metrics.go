package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors exported by the service: HTTP traffic,
// database query latency and change-event delivery.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	DBQueryDuration *prometheus.HistogramVec
	Events          *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "empleados_http_requests_total",
			Help: "Total HTTP requests served, by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "empleados_http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "empleados_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'find_all', 'save_employee', ...
		Events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "empleados_events_total",
			Help: "Change events handed to the broker, by type and outcome.",
		}, []string{"type", "status"}),
	}
}

// ObserveQuery records the time elapsed since start for queryType.
// It is a no-op on a nil receiver.
func (m *Metrics) ObserveQuery(queryType string, start time.Time) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
}

// CountEvent increments the event counter. It is a no-op on a nil receiver.
func (m *Metrics) CountEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType, status).Inc()
}

// ObserveRequest records one served HTTP request. It is a no-op on a nil receiver.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}
