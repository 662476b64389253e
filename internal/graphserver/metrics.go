package graphserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics carries the server's self-observation counters on a private
// registry, exposed under /metrics.
type serverMetrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	queryDuration prometheus.Histogram
	queryErrors   prometheus.Counter
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spangraph",
				Subsystem: "server",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"endpoint"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "spangraph",
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Backend query execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		queryErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "spangraph",
				Subsystem: "query",
				Name:      "errors_total",
				Help:      "Total number of failed backend query executions",
			},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.queryDuration,
		m.queryErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
