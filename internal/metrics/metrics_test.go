package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveDocument("regulatory", "indexed", time.Millisecond)
	m.ObserveDocument("regulatory", "indexed", time.Millisecond)
	m.ObserveDocument("generic", "failed", 0)
	m.ObserveChunk("dense")
	m.ObserveWarning("pattern_ambiguous")
	m.ObserveExpansion([]string{"input", "neighbor", "neighbor"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("regulatory", "indexed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("generic", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunksTotal.WithLabelValues("dense")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WarningsTotal.WithLabelValues("pattern_ambiguous")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExpansionsTotal.WithLabelValues("neighbor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpandRequestsTotal))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDocument("generic", "indexed", time.Second)
	m.ObserveChunk("sparse")
	m.ObserveWarning("input_malformed")
	m.ObserveExpansion([]string{"input"})

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := New(nil)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/chunks/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chunks/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/chunks/{id}", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "bunkatsu_http_requests_total"))
}
