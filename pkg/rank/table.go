package rank

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siterank/siterank/pkg/logger"
)

// Source supplies a local copy of the ranking archive. Ensure returns the
// path of a usable archive file, downloading it first when the cached copy
// is missing or stale.
type Source interface {
	Ensure(ctx context.Context) (string, error)
}

// Table is the lookup facade over the current Index. It is constructed
// empty, loaded exactly once via Load, and safe for concurrent readers at
// all times. Queries against an unloaded or failed table answer "not found"
// rather than erroring.
type Table struct {
	source  Source
	current atomic.Pointer[Index]
	loaded  atomic.Bool

	once    sync.Once
	loadErr error

	logger *slog.Logger
}

// NewTable creates a Table backed by the given archive source. The table
// starts out empty; call Load before expecting meaningful answers.
func NewTable(source Source) *Table {
	t := &Table{
		source: source,
		logger: logger.WithComponent("rank-table"),
	}
	t.current.Store(newIndex())
	return t
}

// Load fetches the ranking archive and builds and publishes the index. It
// runs the fetch+build sequence at most once per Table; concurrent callers
// block until the first load finishes and observe its result. On failure the
// table stays empty and the error is returned to every Load caller, while
// lookup operations keep working and report misses.
func (t *Table) Load(ctx context.Context) error {
	t.once.Do(func() {
		t.loadErr = t.load(ctx)
	})
	return t.loadErr
}

func (t *Table) load(ctx context.Context) error {
	start := time.Now()

	path, err := t.source.Ensure(ctx)
	if err != nil {
		t.logger.Error("ranking source fetch failed", "error", err)
		return err
	}

	idx, err := BuildFromArchive(path)
	if err != nil {
		t.logger.Error("index build failed, cached archive discarded", "path", path, "error", err)
		return err
	}

	t.current.Store(idx)
	t.loaded.Store(true)
	t.logger.Info("rank index loaded",
		"entries", idx.Len(),
		"skipped_lines", idx.Skipped(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// RankOf returns the popularity rank for a domain or URL. The input is
// normalized before lookup; empty or whitespace-only input reports a miss
// without touching the index. RankOf never triggers a fetch or rebuild.
func (t *Table) RankOf(input string) (int, bool) {
	if strings.TrimSpace(input) == "" {
		return 0, false
	}
	domain := Normalize(input)
	if domain == "" {
		return 0, false
	}
	return t.current.Load().Rank(domain)
}

// DomainOf returns the domain holding the given rank. Ranks are canonical
// integers and are not normalized; non-positive or unknown ranks are misses.
func (t *Table) DomainOf(rank int) (string, bool) {
	return t.current.Load().Domain(rank)
}

// Len reports the entry count of the currently published index.
func (t *Table) Len() int {
	return t.current.Load().Len()
}

// Skipped reports the malformed-line count from the last build.
func (t *Table) Skipped() int {
	return t.current.Load().Skipped()
}

// Top returns the first n entries of the published index in file order.
func (t *Table) Top(n int) []Entry {
	return t.current.Load().Top(n)
}

// Loaded reports whether a load has completed successfully.
func (t *Table) Loaded() bool {
	return t.loaded.Load()
}
