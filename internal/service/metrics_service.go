package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import outcomes recorded by RecordImport.
const (
	ImportOutcomeSuccess   = "success"
	ImportOutcomeReauth    = "reauth_required"
	ImportOutcomeForbidden = "forbidden"
	ImportOutcomeNotFound  = "not_found"
	ImportOutcomeInvalid   = "invalid"
	ImportOutcomeError     = "error"
)

// MetricsSnapshot summarises the counters reported on /health.
type MetricsSnapshot struct {
	RequestsTotal  uint64  `json:"requests_total"`
	CacheHits      uint64  `json:"cache_hits"`
	CacheMisses    uint64  `json:"cache_misses"`
	CacheHitRatio  float64 `json:"cache_hit_ratio"`
	SummaryBuilds  uint64  `json:"summary_builds"`
	ExportsTotal   uint64  `json:"exports_total"`
	ImportsTotal   uint64  `json:"imports_total"`
	ImportFailures uint64  `json:"import_failures"`
}

// MetricsService owns the Prometheus registry for the gradebook API.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	summaryBuild    *prometheus.HistogramVec
	exports         *prometheus.CounterVec
	imports         *prometheus.CounterVec

	requestCount   atomic.Uint64
	cacheHits      atomic.Uint64
	cacheMisses    atomic.Uint64
	summaryCount   atomic.Uint64
	exportCount    atomic.Uint64
	importCount    atomic.Uint64
	importFailures atomic.Uint64
}

// NewMetricsService registers the gradebook collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_cache_lookups_total",
			Help: "Gradebook summary cache lookups by result",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradebook_cache_seconds",
			Help:    "Latency of gradebook cache reads and writes",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"op"}),
		summaryBuild: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradebook_summary_build_seconds",
			Help:    "Time spent loading and computing a class gradebook summary",
			Buckets: prometheus.DefBuckets,
		}, []string{"period"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_exports_total",
			Help: "Gradebook exports rendered by format",
		}, []string{"format"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_imports_total",
			Help: "Google Classroom score imports by outcome",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.requestDuration, m.requests, m.cacheLookups, m.cacheLatency,
		m.summaryBuild, m.exports, m.imports,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requests.WithLabelValues(method, path, code).Inc()
	m.requestCount.Add(1)
}

// RecordCacheOperation records a summary cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.cacheMisses.Add(1)
}

// ObserveCacheWrite records a summary cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// ObserveSummaryBuild records how long an uncached summary took. An empty
// period is reported as "all".
func (m *MetricsService) ObserveSummaryBuild(period string, duration time.Duration) {
	if m == nil {
		return
	}
	if period == "" {
		period = "all"
	}
	m.summaryBuild.WithLabelValues(period).Observe(duration.Seconds())
	m.summaryCount.Add(1)
}

// RecordExport counts one rendered export.
func (m *MetricsService) RecordExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
	m.exportCount.Add(1)
}

// RecordImport counts one score import attempt.
func (m *MetricsService) RecordImport(outcome string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
	m.importCount.Add(1)
	if outcome != ImportOutcomeSuccess {
		m.importFailures.Add(1)
	}
}

// Snapshot returns the running totals.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	snap := MetricsSnapshot{
		RequestsTotal:  m.requestCount.Load(),
		CacheHits:      m.cacheHits.Load(),
		CacheMisses:    m.cacheMisses.Load(),
		SummaryBuilds:  m.summaryCount.Load(),
		ExportsTotal:   m.exportCount.Load(),
		ImportsTotal:   m.importCount.Load(),
		ImportFailures: m.importFailures.Load(),
	}
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRatio = float64(snap.CacheHits) / float64(lookups)
	}
	return snap
}
