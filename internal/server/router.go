// Package server wires the rank lookup API routes and applies the
// middleware chain (CORS, RequestID, Timeout, Metrics, RateLimit).
package server

import (
	"net/http"
	"time"

	"github.com/siterank/siterank/internal/analytics"
	"github.com/siterank/siterank/pkg/health"
	"github.com/siterank/siterank/pkg/metrics"
	"github.com/siterank/siterank/pkg/middleware"
	"github.com/siterank/siterank/pkg/rank"
	"github.com/siterank/siterank/pkg/ratelimit"
)

// Router builds the full lookup-service HTTP handler.
//
// Route table:
//
//	GET /api/v1/rank?domain=   → rank of a domain or URL
//	GET /api/v1/domain?rank=   → domain at a rank
//	GET /api/v1/top?n=         → first n entries in file order
//	GET /api/v1/status         → load state and build counters
//	GET /health/live           → liveness probe
//	GET /health/ready          → readiness probe
//	GET /metrics               → Prometheus scrape (when metrics enabled)
//
// The collector, metrics, and limiter may be nil, which disables event
// tracking, the metrics endpoint, and rate limiting respectively.
func Router(table *rank.Table, collector *analytics.Collector, checker *health.Checker, m *metrics.Metrics, limiter *ratelimit.Limiter, requestTimeout time.Duration) http.Handler {
	h := New(table, collector, m)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/rank", h.Rank)
	mux.HandleFunc("GET /api/v1/domain", h.Domain)
	mux.HandleFunc("GET /api/v1/top", h.Top)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if m != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	if limiter != nil {
		chain = middleware.RateLimit(limiter)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(requestTimeout)(chain)
	chain = middleware.RequestID(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)

	return chain
}
