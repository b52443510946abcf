package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/siterank/siterank/pkg/metrics"
)

// knownRoutes lists every path this repo serves. Requests outside the set
// share a single "other" label so port scans and typo'd paths cannot grow
// Prometheus label cardinality.
var knownRoutes = map[string]struct{}{
	"/api/v1/rank":   {},
	"/api/v1/domain": {},
	"/api/v1/top":    {},
	"/api/v1/status": {},
	"/api/v1/stats":  {},
	"/health/live":   {},
	"/health/ready":  {},
	"/metrics":       {},
}

func routeLabel(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return "other"
}

// Metrics returns middleware that records request count, latency, and an
// in-flight gauge for every route.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		})
	}
}

// statusRecorder captures the status code written by the wrapped handler.
// The first WriteHeader wins, matching net/http semantics.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}
