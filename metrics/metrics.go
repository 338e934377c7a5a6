// Package metrics holds the Prometheus collectors the server exposes on
// /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clothstock"

type Metrics struct {
	registry *prometheus.Registry

	MovementsRecorded *prometheus.CounterVec
	MovementQuantity  *prometheus.CounterVec
	DeletesRefused    *prometheus.CounterVec
	EntityWrites      *prometheus.CounterVec
	CategoriesImport  *prometheus.CounterVec
	LoginAttempts     *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, so tests can build
// as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		MovementsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Stock movements recorded, by type.",
		}, []string{"type"}),
		MovementQuantity: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movement_quantity_total",
			Help:      "Units moved, by movement type.",
		}, []string{"type"}),
		DeletesRefused: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_refused_total",
			Help:      "Deletes refused because the row is still referenced.",
		}, []string{"entity"}),
		EntityWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_writes_total",
			Help:      "Committed entity writes.",
		}, []string{"entity", "action"}),
		CategoriesImport: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_import_lines_total",
			Help:      "Bulk category import lines, by outcome.",
		}, []string{"outcome"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts, by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
