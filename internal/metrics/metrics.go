// Package metrics defines the Prometheus collectors for ingestion, expansion and the HTTP API,
// and exposes a scrape handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	DocumentsTotal      *prometheus.CounterVec
	ChunksTotal         *prometheus.CounterVec
	WarningsTotal       *prometheus.CounterVec
	IngestDuration      prometheus.Histogram
	ExpansionsTotal     *prometheus.CounterVec
	ExpandRequestsTotal prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bunkatsu_documents_total",
				Help: "Documents handled by ingestion, by strategy and outcome (indexed, skipped, failed).",
			},
			[]string{"strategy", "outcome"},
		),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bunkatsu_chunks_total",
				Help: "Chunks committed, by density category.",
			},
			[]string{"density"},
		),
		WarningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bunkatsu_segment_warnings_total",
				Help: "Recoverable segmentation warnings, by kind.",
			},
			[]string{"kind"},
		),
		IngestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bunkatsu_ingest_duration_seconds",
				Help:    "Time to process and commit one document.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		ExpansionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bunkatsu_expansions_total",
				Help: "Chunk ids returned by context expansion, by reason.",
			},
			[]string{"reason"},
		),
		ExpandRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bunkatsu_expand_requests_total",
				Help: "Context expansion requests served.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bunkatsu_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bunkatsu_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.DocumentsTotal,
		m.ChunksTotal,
		m.WarningsTotal,
		m.IngestDuration,
		m.ExpansionsTotal,
		m.ExpandRequestsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler returns the scrape handler for the registry of m.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveDocument records one ingested document.
func (m *Metrics) ObserveDocument(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(strategy, outcome).Inc()
	if outcome != "failed" {
		m.IngestDuration.Observe(elapsed.Seconds())
	}
}

// ObserveChunk records one committed chunk.
func (m *Metrics) ObserveChunk(density string) {
	if m == nil {
		return
	}
	m.ChunksTotal.WithLabelValues(density).Inc()
}

// ObserveWarning records one segmentation warning.
func (m *Metrics) ObserveWarning(kind string) {
	if m == nil {
		return
	}
	m.WarningsTotal.WithLabelValues(kind).Inc()
}

// ObserveExpansion records one expansion request and the reasons of the returned ids.
func (m *Metrics) ObserveExpansion(reasons []string) {
	if m == nil {
		return
	}
	m.ExpandRequestsTotal.Inc()
	for _, r := range reasons {
		m.ExpansionsTotal.WithLabelValues(r).Inc()
	}
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}
