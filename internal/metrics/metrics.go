package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizplangen",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bizplangen",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizplangen",
			Subsystem: "payment",
			Name:      "orders_total",
			Help:      "Order creation attempts by outcome",
		},
		[]string{"outcome"},
	)

	paymentsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizplangen",
			Subsystem: "payment",
			Name:      "confirmations_total",
			Help:      "Sessions unlocked by confirmation source",
		},
		[]string{"source"},
	)

	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizplangen",
			Subsystem: "generation",
			Name:      "jobs_total",
			Help:      "Generation jobs by final state",
		},
		[]string{"state"},
	)

	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bizplangen",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Wall time of a generation job",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
)

func RecordOrder(outcome string) {
	ordersTotal.WithLabelValues(outcome).Inc()
}

func RecordPaymentConfirmed(source string) {
	paymentsConfirmed.WithLabelValues(source).Inc()
}

func RecordGeneration(state string, d time.Duration) {
	generationsTotal.WithLabelValues(state).Inc()
	generationDuration.Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// unmatchedPath labels requests no route matched, so raw paths never become series.
const unmatchedPath = "unmatched"

// Middleware records request counts and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := unmatchedPath
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
