package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	dto "github.com/prometheus/client_model/go"
)

func TestMiddleware_InvokesNextHandler(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected Middleware to invoke the wrapped handler")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestMiddleware_DefaultsStatusTo200WhenUnset(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/y", nil)
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 default", rec.Code)
	}
}

func TestMiddleware_UsesChiRoutePatternWhenAvailable(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/flags/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/flags/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	metric := &dto.Metric{}
	counter, err := httpReqs.GetMetricWithLabelValues("/flags/{key}", http.MethodGet, http.StatusText(http.StatusOK))
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() < 1 {
		t.Errorf("expected the route-pattern-labeled counter to have been incremented, got %v", metric.Counter.GetValue())
	}
}

func TestStatusWriter_WriteHeaderCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rec, status: 200}
	w.WriteHeader(http.StatusTeapot)

	if w.status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.status, http.StatusTeapot)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("underlying recorder status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
