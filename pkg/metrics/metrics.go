// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	LookupsTotal         *prometheus.CounterVec
	IndexEntries         prometheus.Gauge
	IndexSkippedLines    prometheus.Gauge
	ArchiveAgeSeconds    prometheus.Gauge
	ArchiveDownloads     prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rank_lookups_total",
				Help: "Total rank table lookups by operation (rank, domain) and result (hit, miss).",
			},
			[]string{"op", "result"},
		),
		IndexEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rank_index_entries",
				Help: "Number of entries in the currently published rank index.",
			},
		),
		IndexSkippedLines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rank_index_skipped_lines",
				Help: "Number of malformed source lines skipped during the last index build.",
			},
		),
		ArchiveAgeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rank_archive_age_seconds",
				Help: "Age of the cached ranking archive at load time, in seconds.",
			},
		),
		ArchiveDownloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rank_archive_downloads_total",
				Help: "Total ranking archive downloads performed (cache misses or stale cache).",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.LookupsTotal,
		m.IndexEntries,
		m.IndexSkippedLines,
		m.ArchiveAgeSeconds,
		m.ArchiveDownloads,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
