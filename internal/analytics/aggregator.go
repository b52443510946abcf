package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siterank/siterank/pkg/kafka"
)

type AggregatedStats struct {
	TotalLookups     int64         `json:"total_lookups"`
	Hits             int64         `json:"hits"`
	Misses           int64         `json:"misses"`
	HitRate          float64       `json:"hit_rate"`
	RankLookups      int64         `json:"rank_lookups"`
	DomainLookups    int64         `json:"domain_lookups"`
	AvgLatencyUs     float64       `json:"avg_latency_us"`
	P50LatencyUs     int64         `json:"p50_latency_us"`
	P95LatencyUs     int64         `json:"p95_latency_us"`
	P99LatencyUs     int64         `json:"p99_latency_us"`
	TopDomains       []DomainCount `json:"top_domains"`
	TopMisses        []DomainCount `json:"top_misses"`
	LookupsPerMinute float64       `json:"lookups_per_minute"`
}

type DomainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

type Aggregator struct {
	mu            sync.RWMutex
	totalLookups  atomic.Int64
	hits          atomic.Int64
	misses        atomic.Int64
	rankLookups   atomic.Int64
	domainLookups atomic.Int64
	latencies     []int64
	domainCounts  map[string]int64
	missCounts    map[string]int64
	startTime     time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:    make([]int64, 0, 10000),
		domainCounts: make(map[string]int64),
		missCounts:   make(map[string]int64),
		startTime:    time.Now(),
		logger:       slog.Default().With("component", "lookup-aggregator"),
	}
}

// HandleEvent returns the Kafka handler that feeds decoded lookup events
// into the aggregator.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[LookupEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode lookup event", "error", err)
			return nil
		}
		agg.recordLookupEvent(event)
		return nil
	}
}

func (a *Aggregator) recordLookupEvent(event LookupEvent) {
	a.totalLookups.Add(1)

	if event.Found {
		a.hits.Add(1)
	} else {
		a.misses.Add(1)
	}

	switch event.Op {
	case "rank":
		a.rankLookups.Add(1)
	case "domain":
		a.domainLookups.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyUs)
	if event.Found && event.Domain != "" {
		a.domainCounts[event.Domain]++
	}
	if !event.Found && event.Input != "" {
		a.missCounts[event.Input]++
	}
	a.mu.Unlock()
}

// Stats snapshots the aggregated counters. topCount sizes the top-domains
// and top-misses lists; values below one fall back to 10.
func (a *Aggregator) Stats(topCount int) AggregatedStats {
	if topCount < 1 {
		topCount = 10
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalLookups:  a.totalLookups.Load(),
		Hits:          a.hits.Load(),
		Misses:        a.misses.Load(),
		RankLookups:   a.rankLookups.Load(),
		DomainLookups: a.domainLookups.Load(),
	}
	if stats.TotalLookups > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.TotalLookups)
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}

	stats.TopDomains = topN(a.domainCounts, topCount)
	stats.TopMisses = topN(a.missCounts, topCount)

	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.LookupsPerMinute = float64(stats.TotalLookups) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []DomainCount {
	result := make([]DomainCount, 0, len(counts))
	for domain, count := range counts {
		result = append(result, DomainCount{Domain: domain, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Domain < result[j].Domain
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
