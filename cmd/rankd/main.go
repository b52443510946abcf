// Command rankd starts the domain popularity rank lookup service.
//
// On startup it ensures a usable local copy of the ranking archive
// (downloading it when the cache is missing or older than the freshness
// window), builds the in-memory rank index, and serves lookups over HTTP:
// domain→rank, rank→domain, the top of the ranking, and operational status.
// A failed initial load is not fatal; the service stays up and answers every
// lookup with "not found" until it is restarted.
//
// Usage:
//
//	go run ./cmd/rankd [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siterank/siterank/internal/analytics"
	"github.com/siterank/siterank/internal/server"
	"github.com/siterank/siterank/pkg/config"
	"github.com/siterank/siterank/pkg/fetch"
	"github.com/siterank/siterank/pkg/health"
	"github.com/siterank/siterank/pkg/kafka"
	"github.com/siterank/siterank/pkg/logger"
	"github.com/siterank/siterank/pkg/metrics"
	"github.com/siterank/siterank/pkg/rank"
	"github.com/siterank/siterank/pkg/ratelimit"
)

// main boots the lookup service: it loads the rank table exactly once before
// serving, registers health checks and metrics, optionally starts the
// lookup-event collector, and serves the HTTP API. Graceful shutdown is
// triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting rank lookup service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	fetcher := fetch.New(cfg.Source)
	table := rank.NewTable(fetcher)

	// The load runs to completion before any query is answered. A failure
	// leaves the table empty; queries then report misses instead of errors.
	if err := table.Load(ctx); err != nil {
		slog.Error("initial index load failed, serving empty table", "error", err)
	} else {
		slog.Info("rank table ready", "entries", table.Len(), "skipped_lines", table.Skipped())
	}

	if m != nil {
		m.IndexEntries.Set(float64(table.Len()))
		m.IndexSkippedLines.Set(float64(table.Skipped()))
		m.ArchiveDownloads.Add(float64(fetcher.Downloads()))
		if info, err := os.Stat(fetcher.Path()); err == nil {
			m.ArchiveAgeSeconds.Set(time.Since(info.ModTime()).Seconds())
		}
	}

	var collector *analytics.Collector
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.LookupEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("lookup analytics enabled", "topic", cfg.Kafka.Topics.LookupEvents)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		switch {
		case !table.Loaded():
			return health.ComponentHealth{Status: health.StatusDown, Message: "index load failed"}
		case table.Len() == 0:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		default:
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d entries", table.Len())}
		}
	})

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(time.Minute, cfg.RateLimit.PerMinute)
		slog.Info("rate limiting enabled", "per_minute", cfg.RateLimit.PerMinute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(table, collector, checker, m, limiter, cfg.Server.WriteTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("rank lookup service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("rank lookup service stopped")
}
