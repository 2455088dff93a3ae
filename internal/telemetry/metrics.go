package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Search metrics
	SearchesTotal     *prometheus.CounterVec
	SearchResults     *prometheus.HistogramVec
	DegradationsTotal *prometheus.CounterVec

	// Index metrics
	RebuildsTotal   *prometheus.CounterVec
	RebuildDuration prometheus.Histogram
	IndexedSkills   prometheus.Gauge

	// Embedding cache metrics
	EmbedCacheHitsTotal   prometheus.Counter
	EmbedCacheMissesTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilldex_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skilldex_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilldex_searches_total",
				Help: "Total number of searches by the tier that answered them",
			},
			[]string{"tier"},
		),
		SearchResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skilldex_search_candidates",
				Help:    "Number of candidates retrieved before ranking",
				Buckets: []float64{0, 1, 5, 10, 20, 40, 80, 160},
			},
			[]string{"tier"},
		),
		DegradationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilldex_search_degradations_total",
				Help: "Total number of search tier fallbacks",
			},
			[]string{"from", "to"},
		),
		RebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilldex_index_rebuilds_total",
				Help: "Total number of index rebuilds by result",
			},
			[]string{"result"},
		),
		RebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skilldex_index_rebuild_duration_seconds",
				Help:    "Index rebuild duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		IndexedSkills: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "skilldex_indexed_skills",
				Help: "Number of skills in the active index generation",
			},
		),
		EmbedCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "skilldex_embed_cache_hits_total",
				Help: "Total number of query embedding cache hits",
			},
		),
		EmbedCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "skilldex_embed_cache_misses_total",
				Help: "Total number of query embedding cache misses",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchesTotal,
		m.SearchResults,
		m.DegradationsTotal,
		m.RebuildsTotal,
		m.RebuildDuration,
		m.IndexedSkills,
		m.EmbedCacheHitsTotal,
		m.EmbedCacheMissesTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records which tier answered a search and how many candidates it produced.
func (m *Metrics) ObserveSearch(tier string, candidates int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(tier).Inc()
	m.SearchResults.WithLabelValues(tier).Observe(float64(candidates))
}

// ObserveDegradation records a fallback from one search tier to the next.
func (m *Metrics) ObserveDegradation(from, to string) {
	if m == nil {
		return
	}
	m.DegradationsTotal.WithLabelValues(from, to).Inc()
}

// ObserveRebuild records a rebuild attempt.
func (m *Metrics) ObserveRebuild(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RebuildsTotal.WithLabelValues(result).Inc()
	m.RebuildDuration.Observe(duration.Seconds())
}

// SetIndexedSkills sets the active generation size.
func (m *Metrics) SetIndexedSkills(n int) {
	if m == nil {
		return
	}
	m.IndexedSkills.Set(float64(n))
}

// ObserveEmbedCache records a query embedding cache lookup.
func (m *Metrics) ObserveEmbedCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.EmbedCacheHitsTotal.Inc()
		return
	}
	m.EmbedCacheMissesTotal.Inc()
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
