// Command rankquery is a small CLI client for ad-hoc queries against the
// rank table. It fetches (or reuses) the cached ranking archive, builds the
// index in-process, and answers a single lookup.
//
// Usage:
//
//	go run ./cmd/rankquery -domain example.com
//	go run ./cmd/rankquery -rank 1
//	go run ./cmd/rankquery -top 20
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/siterank/siterank/pkg/config"
	"github.com/siterank/siterank/pkg/fetch"
	"github.com/siterank/siterank/pkg/logger"
	"github.com/siterank/siterank/pkg/rank"
)

func main() {
	defaults, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading defaults: %v\n", err)
		os.Exit(1)
	}

	var (
		domain    = flag.String("domain", "", "domain or URL to look up")
		rankArg   = flag.Int("rank", 0, "rank position to look up")
		top       = flag.Int("top", 0, "print the top N ranked domains")
		sourceURL = flag.String("url", defaults.Source.URL, "ranking archive URL")
		cacheDir  = flag.String("cache", defaults.Source.CacheDir, "local cache directory")
		days      = flag.Int("days", defaults.Source.FreshnessDays, "cache freshness window in days")
		timeout   = flag.Duration("timeout", defaults.Source.Timeout, "download timeout")
		logLevel  = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *domain == "" && *rankArg == 0 && *top == 0 {
		fmt.Fprintln(os.Stderr, "specify one of -domain, -rank, or -top")
		flag.Usage()
		os.Exit(2)
	}

	logger.Setup(*logLevel, "text")

	table := rank.NewTable(fetch.New(config.SourceConfig{
		URL:           *sourceURL,
		CacheDir:      *cacheDir,
		FreshnessDays: *days,
		Timeout:       *timeout,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := table.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "loading rank table: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *domain != "":
		normalized := rank.Normalize(*domain)
		position, ok := table.RankOf(*domain)
		if !ok {
			fmt.Printf("%s: not ranked\n", normalized)
			os.Exit(1)
		}
		fmt.Printf("%s: rank %d\n", normalized, position)
	case *rankArg != 0:
		d, ok := table.DomainOf(*rankArg)
		if !ok {
			fmt.Printf("rank %d: no domain\n", *rankArg)
			os.Exit(1)
		}
		fmt.Printf("rank %d: %s\n", *rankArg, d)
	default:
		for _, e := range table.Top(*top) {
			fmt.Printf("%7d  %s\n", e.Rank, e.Domain)
		}
	}
}
