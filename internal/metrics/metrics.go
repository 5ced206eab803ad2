// Package metrics exposes Prometheus counters for classification, the
// related-foods tiers, cache lookups and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nakedpantry"

// Tier query outcomes
const (
	OutcomeHit   = "hit"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds the service's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ClassificationsTotal *prometheus.CounterVec
	SeedOilFlagsTotal    prometheus.Counter
	TierQueriesTotal     *prometheus.CounterVec
	RelatedResultSize    prometheus.Histogram
	CacheLookupsTotal    *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ClassificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Ingredient lists classified, by resulting NOVA group",
		}, []string{"nova_group"}),
		SeedOilFlagsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seed_oil_flags_total",
			Help:      "Classifications whose ingredients contained a seed oil",
		}),
		TierQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "related_tier_queries_total",
			Help:      "Related-foods tier queries, by tier and outcome",
		}, []string{"tier", "outcome"}),
		RelatedResultSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "related_result_size",
			Help:      "Number of related foods returned per resolution",
			Buckets:   []float64{0, 1, 2, 3, 4},
		}),
		CacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result",
		}, []string{"cache", "result"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveClassification records one classifier outcome
func (m *Metrics) ObserveClassification(novaGroup int, seedOils bool) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(strconv.Itoa(novaGroup)).Inc()
	if seedOils {
		m.SeedOilFlagsTotal.Inc()
	}
}

// ObserveTier records one related-foods tier query
func (m *Metrics) ObserveTier(tier, outcome string) {
	if m == nil {
		return
	}
	m.TierQueriesTotal.WithLabelValues(tier, outcome).Inc()
}

// ObserveRelatedResult records the size of a resolved related list
func (m *Metrics) ObserveRelatedResult(size int) {
	if m == nil {
		return
	}
	m.RelatedResultSize.Observe(float64(size))
}

// ObserveCache records a cache hit or miss
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// ObserveRequest records an HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
