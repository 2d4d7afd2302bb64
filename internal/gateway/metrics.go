package gateway

import (
	"net/http"
	"sync/atomic"
)

// Metrics tracks gateway-level counters using atomic operations for
// lock-free concurrency. The heavier per-run metrics live in the engine;
// these are the request counters surfaced by /status.
type Metrics struct {
	requests atomic.Int64
	errors   atomic.Int64
}

// middleware counts every request and 5xx response.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		if sw.status >= 500 {
			m.errors.Add(1)
		}
	})
}

// Snapshot returns a consistent point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests: m.requests.Load(),
		Errors:   m.errors.Load(),
	}
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	Requests int64 `json:"requests"`
	Errors   int64 `json:"errors"`
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
