package rank

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "github.com/siterank/siterank/pkg/errors"
)

type fakeSource struct {
	path  string
	err   error
	calls atomic.Int64
}

func (s *fakeSource) Ensure(ctx context.Context) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

func newLoadedTable(t *testing.T) (*Table, *fakeSource) {
	t.Helper()

	path := writeZipArchive(t, t.TempDir(), "top-1m.csv", "1,google.com\n2,youtube.com\n3,example.com\nbad\n")
	src := &fakeSource{path: path}
	table := NewTable(src)
	if err := table.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return table, src
}

func TestTableLoadAndLookup(t *testing.T) {
	table, src := newLoadedTable(t)

	if !table.Loaded() {
		t.Error("Loaded() = false after successful load")
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}
	if table.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", table.Skipped())
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source fetched %d times, want 1", n)
	}

	if r, ok := table.RankOf("google.com"); !ok || r != 1 {
		t.Errorf("RankOf(google.com) = %d, %v; want 1, true", r, ok)
	}
	if d, ok := table.DomainOf(2); !ok || d != "youtube.com" {
		t.Errorf("DomainOf(2) = %q, %v; want youtube.com, true", d, ok)
	}
}

func TestTableLoadRunsOnce(t *testing.T) {
	table, src := newLoadedTable(t)

	for i := 0; i < 3; i++ {
		if err := table.Load(context.Background()); err != nil {
			t.Fatalf("repeated Load failed: %v", err)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source fetched %d times across repeated loads, want 1", n)
	}
}

func TestTableLoadConcurrent(t *testing.T) {
	path := writeZipArchive(t, t.TempDir(), "top-1m.csv", "1,google.com\n")
	src := &fakeSource{path: path}
	table := NewTable(src)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = table.Load(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("concurrent Load %d failed: %v", i, err)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source fetched %d times under concurrent loads, want 1", n)
	}
	if r, ok := table.RankOf("google.com"); !ok || r != 1 {
		t.Errorf("RankOf(google.com) = %d, %v; want 1, true", r, ok)
	}
}

func TestTableFetchFailureLeavesEmptyTable(t *testing.T) {
	fetchErr := fmt.Errorf("%w: connection refused", apperrors.ErrFetchFailed)
	src := &fakeSource{err: fetchErr}
	table := NewTable(src)

	err := table.Load(context.Background())
	if !errors.Is(err, apperrors.ErrFetchFailed) {
		t.Fatalf("Load error = %v, want ErrFetchFailed", err)
	}
	if table.Loaded() {
		t.Error("Loaded() = true after failed load")
	}

	// Lookups keep answering, reporting misses instead of failing.
	if _, ok := table.RankOf("google.com"); ok {
		t.Error("RankOf hit on an empty table")
	}
	if _, ok := table.DomainOf(1); ok {
		t.Error("DomainOf hit on an empty table")
	}

	// A failed load is not retried within the process; later callers see
	// the original error.
	if again := table.Load(context.Background()); !errors.Is(again, apperrors.ErrFetchFailed) {
		t.Errorf("second Load error = %v, want ErrFetchFailed", again)
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source fetched %d times, want 1", n)
	}
}

func TestTableBuildFailureDiscardsArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "top-1m.csv.zip")
	if err := os.WriteFile(path, []byte("garbage payload"), 0644); err != nil {
		t.Fatalf("writing corrupt archive: %v", err)
	}

	table := NewTable(&fakeSource{path: path})
	err := table.Load(context.Background())
	if !errors.Is(err, apperrors.ErrIndexBuild) {
		t.Fatalf("Load error = %v, want ErrIndexBuild", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("corrupt archive survived the failed build")
	}
	if table.Loaded() {
		t.Error("Loaded() = true after failed build")
	}
}

func TestTableLookupsBeforeLoad(t *testing.T) {
	table := NewTable(&fakeSource{})

	if table.Loaded() {
		t.Error("fresh table reports loaded")
	}
	if table.Len() != 0 {
		t.Errorf("fresh table Len() = %d, want 0", table.Len())
	}
	if _, ok := table.RankOf("google.com"); ok {
		t.Error("RankOf hit before load")
	}
	if _, ok := table.DomainOf(1); ok {
		t.Error("DomainOf hit before load")
	}
	if top := table.Top(10); len(top) != 0 {
		t.Errorf("Top(10) on fresh table returned %d entries", len(top))
	}
}

func TestTableRankOfNormalizesInput(t *testing.T) {
	table, _ := newLoadedTable(t)

	// Every spelling resolves to the same entry.
	for _, input := range []string{
		"example.com",
		"WWW.Example.com",
		"http://example.com",
		"https://www.example.com/path",
		"  https://example.com/a?q=1  ",
	} {
		if r, ok := table.RankOf(input); !ok || r != 3 {
			t.Errorf("RankOf(%q) = %d, %v; want 3, true", input, r, ok)
		}
	}
}

func TestTableRankOfRejectsBlankInput(t *testing.T) {
	table, _ := newLoadedTable(t)

	for _, input := range []string{"", "   ", "\t", "https://", "www."} {
		if _, ok := table.RankOf(input); ok {
			t.Errorf("RankOf(%q) unexpectedly hit", input)
		}
	}
}

func TestTableDomainOfOutOfRange(t *testing.T) {
	table, _ := newLoadedTable(t)

	for _, rank := range []int{0, -1, 999999} {
		if d, ok := table.DomainOf(rank); ok {
			t.Errorf("DomainOf(%d) = %q, want miss", rank, d)
		}
	}
}

func TestTableConcurrentReads(t *testing.T) {
	table, _ := newLoadedTable(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if r, ok := table.RankOf("google.com"); !ok || r != 1 {
					t.Errorf("RankOf(google.com) = %d, %v; want 1, true", r, ok)
					return
				}
				if _, ok := table.DomainOf(2); !ok {
					t.Error("DomainOf(2) missed")
					return
				}
			}
		}()
	}
	wg.Wait()
}
