package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "property_valuation"

// Metrics groups the collectors recorded by the valuation pipeline and the
// HTTP layer. Each instance owns its registry so tests stay isolated.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups       *prometheus.CounterVec // labels: cache, result
	CacheWriteFailures *prometheus.CounterVec // labels: cache
	UpstreamErrors     *prometheus.CounterVec // labels: operation
	ScoringFailures    *prometheus.CounterVec // labels: reason
	Valuations         prometheus.Counter
	ValuationDuration  prometheus.Histogram
	ListingsFetched    *prometheus.CounterVec // labels: category
	HTTPRequests       *prometheus.CounterVec // labels: method, path, status
	HTTPDuration       *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_lookups_total",
			Help: "Cache lookups by cache and result (hit, miss, error, malformed).",
		}, []string{"cache", "result"}),
		CacheWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_write_failures_total",
			Help: "Cache writes that failed and were skipped.",
		}, []string{"cache"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "upstream_errors_total",
			Help: "Failed calls to the listing portal.",
		}, []string{"operation"}),
		ScoringFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "scoring_failures_total",
			Help: "Purchase candidates excluded because scoring was undefined.",
		}, []string{"reason"}),
		Valuations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "valuations_computed_total",
			Help: "Ranked valuation lists computed (cache misses).",
		}),
		ValuationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "valuation_duration_seconds",
			Help:    "Time to produce a ranked valuation list.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		ListingsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "listings_fetched_total",
			Help: "Listings returned by the property finder.",
		}, []string{"category"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.CacheLookups, m.CacheWriteFailures, m.UpstreamErrors, m.ScoringFailures,
		m.Valuations, m.ValuationDuration, m.ListingsFetched, m.HTTPRequests, m.HTTPDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheLookup(cache, result string) {
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) ObserveValuation(start time.Time) {
	m.Valuations.Inc()
	m.ValuationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHTTP(method, path, status string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
