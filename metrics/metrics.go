package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics methods are safe to call on a nil receiver.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	cacheLookupsTotal *prometheus.CounterVec

	storeCallsTotal   *prometheus.CounterVec
	storeCallDuration *prometheus.HistogramVec
}

func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "people_http_requests_total",
				Help: "Total HTTP requests by operation and status code.",
			},
			[]string{"operation", "code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "people_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "people_cache_lookups_total",
				Help: "Cache lookups by key kind and result (hit, miss, error).",
			},
			[]string{"kind", "result"},
		),
		storeCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "people_store_calls_total",
				Help: "Store calls by method and status.",
			},
			[]string{"method", "status"},
		),
		storeCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "people_store_call_duration_seconds",
				Help:    "Store call latency in seconds by method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	registerer.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.cacheLookupsTotal,
		m.storeCallsTotal,
		m.storeCallDuration,
	)

	return m
}

func (m *Metrics) ObserveRequest(operation string, code int, duration time.Duration) {
	if m == nil {
		return
	}

	m.httpRequestsTotal.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) ObserveCacheLookup(kind, result string) {
	if m == nil {
		return
	}

	m.cacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveStore(method, status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.storeCallsTotal.WithLabelValues(method, status).Inc()
	m.storeCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}
