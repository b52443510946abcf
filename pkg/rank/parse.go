package rank

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Skipped lines are sampled into the debug log; past this many per parse
// only the counter moves.
const skipLogSample = 3

// Parse reads rank,domain lines and builds a fresh Index. Each line is split
// on the first comma; the left field must parse as a positive integer and
// the right field must be non-empty after trimming. Lines that fail any of
// these checks are counted and skipped, never fatal. Duplicate ranks or
// domains follow last-write-wins per table.
//
// The returned error is non-nil only when the underlying reader fails, which
// for a decompressed archive member means a corrupt or truncated archive.
func Parse(r io.Reader) (*Index, error) {
	idx := newIndex()
	skip := func(line string) {
		idx.skipped++
		if idx.skipped <= skipLogSample {
			slog.Debug("skipping malformed ranking line", "line", line)
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			skip(line)
			continue
		}
		rank, err := strconv.Atoi(line[:comma])
		if err != nil || rank <= 0 {
			skip(line)
			continue
		}
		domain := strings.ToLower(strings.TrimSpace(line[comma+1:]))
		if domain == "" {
			skip(line)
			continue
		}

		idx.byRank[rank] = domain
		idx.byDomain[domain] = rank
		idx.entries = append(idx.entries, Entry{Rank: rank, Domain: domain})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ranking data: %w", err)
	}
	return idx, nil
}
