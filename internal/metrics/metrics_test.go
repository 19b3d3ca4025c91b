package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/generate/{jobID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/generate/{jobID}", "202"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/generate/abc", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/generate/{jobID}", "202"))

	assert.Equal(t, before+1, after)
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(generationsTotal.WithLabelValues("succeeded"))
	RecordGeneration("succeeded", 2*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(generationsTotal.WithLabelValues("succeeded")))

	before = testutil.ToFloat64(paymentsConfirmed.WithLabelValues("webhook"))
	RecordPaymentConfirmed("webhook")
	assert.Equal(t, before+1, testutil.ToFloat64(paymentsConfirmed.WithLabelValues("webhook")))
}

func TestMiddlewareCollapsesUnmatchedPaths(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	for i := 0; i < 25; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, fmt.Sprintf("/random-%d", i), nil))
	}

	assert.Equal(t, float64(25), testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedPath, "404")))
	for i := 0; i < 25; i++ {
		assert.False(t, hasPathLabel(t, fmt.Sprintf("/random-%d", i)))
	}
}

func hasPathLabel(t *testing.T, path string) bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "bizplangen_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "path" && lp.GetValue() == path {
					return true
				}
			}
		}
	}
	return false
}
