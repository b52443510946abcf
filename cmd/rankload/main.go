// Command rankload drives synthetic lookup traffic against a running rankd
// instance and reports throughput and latency percentiles.
//
// It seeds itself from GET /api/v1/top so the hit set matches whatever
// ranking file the server actually loaded, then mixes rank lookups (plain
// and URL-decorated), reverse lookups by position, and deliberate misses.
//
// Usage:
//
//	go run ./cmd/rankload -url http://localhost:8080 -concurrency 20 -duration 1m
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	missRate    float64
}

// stats collects per-request results across workers. Counters are atomic so
// the hot path stays cheap; latencies and the status table share one mutex
// since both are touched once per request anyway.
type stats struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	byStatus  map[int]int64
}

func newStats() *stats {
	return &stats{
		latencies: make([]time.Duration, 0, 1<<17),
		byStatus:  make(map[int]int64),
	}
}

func (s *stats) record(elapsed time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	// 404 is an expected outcome for miss traffic, not a failure.
	if status < 500 {
		s.succeeded.Add(1)
	} else {
		s.failed.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, elapsed)
	s.byStatus[status]++
	s.mu.Unlock()
}

func main() {
	opts := options{}
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the rankd service")
	flag.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "how long to run")
	flag.Float64Var(&opts.missRate, "miss-rate", 0.2, "fraction of lookups that target unknown domains")
	flag.Parse()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	domains, ranks, err := seedTargets(client, opts.baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seeding targets from %s: %v\n", opts.baseURL, err)
		fmt.Fprintln(os.Stderr, "is rankd running and its rank table loaded?")
		os.Exit(1)
	}

	fmt.Printf("target:      %s\n", opts.baseURL)
	fmt.Printf("concurrency: %d\n", opts.concurrency)
	fmt.Printf("duration:    %s\n", opts.duration)
	fmt.Printf("hit set:     %d domains\n", len(domains))
	fmt.Printf("miss rate:   %.0f%%\n", opts.missRate*100)
	fmt.Println()

	s := run(client, opts, domains, ranks)
	report(s, opts.duration)

	if s.total.Load() == 0 {
		os.Exit(1)
	}
}

type topPayload struct {
	Entries []struct {
		Rank   int    `json:"rank"`
		Domain string `json:"domain"`
	} `json:"entries"`
}

// seedTargets asks the server for its top entries so lookups hit domains the
// loaded table really contains.
func seedTargets(client *http.Client, baseURL string) ([]string, []int, error) {
	resp, err := client.Get(baseURL + "/api/v1/top?n=100")
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("top endpoint returned %s", resp.Status)
	}

	var payload topPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("decoding top response: %w", err)
	}
	if len(payload.Entries) == 0 {
		return nil, nil, fmt.Errorf("top endpoint returned no entries")
	}

	domains := make([]string, len(payload.Entries))
	ranks := make([]int, len(payload.Entries))
	for i, e := range payload.Entries {
		domains[i] = e.Domain
		ranks[i] = e.Rank
	}
	return domains, ranks, nil
}

func run(client *http.Client, opts options, domains []string, ranks []int) *stats {
	s := newStats()
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	started := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := offset; ; i++ {
				select {
				case <-ctx.Done():
					return
				default:
				}

				target := nextTarget(opts, domains, ranks, i)
				start := time.Now()
				status, err := fetch(ctx, client, target)
				s.record(time.Since(start), status, err)
			}
		}(w)
	}

	progress := time.NewTicker(5 * time.Second)
	defer progress.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-progress.C:
				elapsed := time.Since(started).Round(time.Second)
				n := s.total.Load()
				fmt.Printf("%8s  %d requests (%.0f/s)\n", elapsed, n, float64(n)/elapsed.Seconds())
			}
		}
	}()

	wg.Wait()
	fmt.Println()
	return s
}

// nextTarget picks the URL for one request: a deliberate miss, a reverse
// lookup by position, or a rank lookup. Every third hit is dressed up as a
// full URL to push the input through server-side normalization.
func nextTarget(opts options, domains []string, ranks []int, i int) string {
	switch roll := rand.Float64(); {
	case roll < opts.missRate:
		return fmt.Sprintf("%s/api/v1/rank?domain=absent-%d.invalid", opts.baseURL, i%1000)
	case roll < opts.missRate+0.2:
		return fmt.Sprintf("%s/api/v1/domain?rank=%d", opts.baseURL, ranks[i%len(ranks)])
	default:
		domain := domains[i%len(domains)]
		if i%3 == 0 {
			domain = "https://www." + domain + "/about"
		}
		return fmt.Sprintf("%s/api/v1/rank?domain=%s", opts.baseURL, url.QueryEscape(domain))
	}
}

func fetch(ctx context.Context, client *http.Client, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}

func report(s *stats, duration time.Duration) {
	total := s.total.Load()

	fmt.Println("=== results ===")
	fmt.Printf("requests:     %d\n", total)
	fmt.Printf("succeeded:    %d\n", s.succeeded.Load())
	fmt.Printf("failed:       %d\n", s.failed.Load())
	if total > 0 {
		fmt.Printf("failure rate: %.2f%%\n", float64(s.failed.Load())/float64(total)*100)
		fmt.Printf("requests/sec: %.1f\n", float64(total)/duration.Seconds())
	}

	s.mu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	codes := make([]int, 0, len(s.byStatus))
	for code := range s.byStatus {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(s.byStatus))
	for code, n := range s.byStatus {
		counts[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== latency ===")
		fmt.Printf("min:    %s\n", latencies[0])
		fmt.Printf("avg:    %s\n", avg)
		for _, p := range []int{50, 90, 95, 99} {
			fmt.Printf("p%d:    %s\n", p, percentile(latencies, p))
		}
		fmt.Printf("max:    %s\n", latencies[len(latencies)-1])
		fmt.Printf("stddev: %s\n", stddev(latencies, avg))
	}

	if len(codes) > 0 {
		sort.Ints(codes)
		fmt.Println()
		fmt.Println("=== status codes ===")
		for _, code := range codes {
			fmt.Printf("  %d: %d\n", code, counts[code])
		}
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("no requests completed")
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

func stddev(latencies []time.Duration, avg time.Duration) time.Duration {
	var sumSq float64
	for _, l := range latencies {
		d := float64(l - avg)
		sumSq += d * d
	}
	return time.Duration(math.Sqrt(sumSq / float64(len(latencies))))
}
