package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/iwvelando/financing-simulator/pkg/loans"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSimulation(t *testing.T) {
	before := testutil.ToFloat64(SimulationsTotal.WithLabelValues("sac"))
	notConverged := testutil.ToFloat64(SolverNotConverged)
	failures := testutil.ToFloat64(SimulationErrors)

	ObserveSimulation(loans.ConstantAmortization, loans.SimulationResult{
		EffectiveRate: &loans.RateEstimate{RatePercent: 0.1, Iterations: 0, Converged: false},
	}, nil)
	ObserveSimulation(loans.ConstantAmortization, loans.SimulationResult{}, errors.New("boom"))

	if got := testutil.ToFloat64(SimulationsTotal.WithLabelValues("sac")); got != before+1 {
		t.Errorf("SimulationsTotal{sac} = %v, expected %v", got, before+1)
	}
	if got := testutil.ToFloat64(SolverNotConverged); got != notConverged+1 {
		t.Errorf("SolverNotConverged = %v, expected %v", got, notConverged+1)
	}
	if got := testutil.ToFloat64(SimulationErrors); got != failures+1 {
		t.Errorf("SimulationErrors = %v, expected %v", got, failures+1)
	}
}

func TestObserveCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))

	ObserveCache(true)
	ObserveCache(false)
	ObserveCache(false)

	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("hit")); got != hits+1 {
		t.Errorf("hits = %v, expected %v", got, hits+1)
	}
	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("miss")); got != misses+2 {
		t.Errorf("misses = %v, expected %v", got, misses+2)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", Handler())

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, expected 418", rec.Code)
	}

	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "418")); got != before+1 {
		t.Errorf("HTTPRequestsTotal = %v, expected %v", got, before+1)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "financing_http_requests_total") {
		t.Error("/metrics should expose financing_http_requests_total")
	}
}
