// Package metrics provides Prometheus instrumentation for the simulator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/iwvelando/financing-simulator/pkg/loans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SimulationsTotal counts completed simulations by amortization method.
	SimulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "financing_simulations_total",
		Help: "Total number of simulations run",
	}, []string{"method"})

	// SimulationErrors counts simulations rejected before producing a schedule.
	SimulationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "financing_simulation_errors_total",
		Help: "Simulations rejected with an error",
	})

	// SolverIterations tracks how many bisection steps the effective rate took.
	SolverIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "financing_solver_iterations",
		Help:    "Bisection iterations per effective rate solve",
		Buckets: []float64{0, 5, 10, 20, 30, 40, 60, 100},
	})

	// SolverNotConverged counts effective rates reported without convergence.
	SolverNotConverged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "financing_solver_not_converged_total",
		Help: "Effective rate solves that did not converge",
	})

	// CacheLookups counts result cache lookups by outcome (hit or miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "financing_cache_lookups_total",
		Help: "Result cache lookups",
	}, []string{"result"})

	// RateLimitRejections counts requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "financing_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "financing_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "financing_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveSimulation records the outcome of one simulation.
func ObserveSimulation(method loans.Method, result loans.SimulationResult, err error) {
	if err != nil {
		SimulationErrors.Inc()
		return
	}
	SimulationsTotal.WithLabelValues(method.String()).Inc()
	if result.EffectiveRate == nil {
		return
	}
	SolverIterations.Observe(float64(result.EffectiveRate.Iterations))
	if !result.EffectiveRate.Converged {
		SolverNotConverged.Inc()
	}
}

// ObserveCache records a cache hit or miss.
func ObserveCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Label by route pattern to keep cardinality bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
