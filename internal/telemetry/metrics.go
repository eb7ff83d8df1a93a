// Package telemetry exposes Prometheus metrics for the SDK's background
// components, grounded on goflagship's internal/telemetry.Middleware
// (statusWriter-wrapped request timing) for the demo host's HTTP surface,
// generalized from per-route HTTP counters to the evaluator/data-source/
// event-pipeline gauges and counters the SDK itself needs.
package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ldflags_http_requests_total",
			Help: "Total HTTP requests served by the demo evaluation host",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ldflags_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	StreamReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ldflags_stream_reconnects_total",
		Help: "Number of times the streaming data source reconnected",
	})
	DataStoreAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ldflags_data_store_available",
		Help: "Whether the data store is currently reachable (1) or not (0)",
	})
	EventQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ldflags_event_queue_depth",
		Help: "Number of events currently buffered in the event pipeline inbox",
	})
	EventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ldflags_events_dropped_total",
		Help: "Number of events dropped because the inbound queue was full",
	})
	FlagsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ldflags_flags_loaded",
		Help: "Number of flags currently held by the data store",
	})
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur, StreamReconnects, DataStoreAvailable, EventQueueDepth, EventsDroppedTotal, FlagsLoaded)
}

// Middleware records request count and latency for the demo evaluation
// host, by route pattern rather than raw path to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// chi fills in the route pattern while routing, i.e. inside next.
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
