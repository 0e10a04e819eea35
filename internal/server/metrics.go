package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/novella/pkg/observability"
)

const namespace = "novella"

// Metrics holds the Prometheus collectors of one server. It implements the
// observability hook interfaces, so registering it with the observability
// package routes editor, export and cache events into /metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	loads        *prometheus.CounterVec
	edits        *prometheus.CounterVec
	autosaves    *prometheus.CounterVec
	autosaveTime *prometheus.HistogramVec
	autosaveSize prometheus.Gauge

	exports    *prometheus.CounterVec
	exportTime *prometheus.HistogramVec

	cache *prometheus.CounterVec
}

// NewMetrics creates collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_loads_total",
			Help:      "Projects opened, by stored document shape",
		}, []string{"version", "result"}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Editor mutations by operation",
		}, []string{"op", "result"}),
		autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosaves_total",
			Help:      "Autosave writes by backend",
		}, []string{"backend", "result"}),
		autosaveTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "autosave_duration_seconds",
			Help:      "Autosave write latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		autosaveSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "project_size_bytes",
			Help:      "Size of the last saved project document",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Rendered exports by format",
		}, []string{"format", "result"}),
		exportTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Export render latency, including cache lookups",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Export cache hits, misses and writes",
		}, []string{"kind", "event"}),
	}
	m.registry.MustRegister(
		m.httpRequests, m.httpDuration,
		m.loads, m.edits, m.autosaves, m.autosaveTime, m.autosaveSize,
		m.exports, m.exportTime, m.cache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnLoad implements observability.EditorHooks.
func (m *Metrics) OnLoad(_ context.Context, version string, _ int, err error) {
	m.loads.WithLabelValues(version, result(err)).Inc()
}

// OnMutation implements observability.EditorHooks.
func (m *Metrics) OnMutation(_ context.Context, op string, _ time.Duration, err error) {
	m.edits.WithLabelValues(op, result(err)).Inc()
}

// OnAutosave implements observability.EditorHooks.
func (m *Metrics) OnAutosave(_ context.Context, backend string, size int, d time.Duration, err error) {
	m.autosaves.WithLabelValues(backend, result(err)).Inc()
	m.autosaveTime.WithLabelValues(backend).Observe(d.Seconds())
	if err == nil {
		m.autosaveSize.Set(float64(size))
	}
}

// OnExportStart implements observability.ExportHooks.
func (m *Metrics) OnExportStart(context.Context, string) {}

// OnExportComplete implements observability.ExportHooks.
func (m *Metrics) OnExportComplete(_ context.Context, format string, _ int, d time.Duration, err error) {
	m.exports.WithLabelValues(format, result(err)).Inc()
	m.exportTime.WithLabelValues(format).Observe(d.Seconds())
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, kind string) {
	m.cache.WithLabelValues(kind, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, kind string) {
	m.cache.WithLabelValues(kind, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, kind string, _ int) {
	m.cache.WithLabelValues(kind, "set").Inc()
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetEditorHooks(m)
	observability.SetExportHooks(m)
	observability.SetCacheHooks(m)
}

var (
	_ observability.EditorHooks = (*Metrics)(nil)
	_ observability.ExportHooks = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
)
