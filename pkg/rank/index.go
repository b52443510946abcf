// Package rank builds and serves the in-memory domain popularity index. The
// index maps global popularity ranks to domains and domains back to their
// ranks, built in a single pass over the ranking file and published
// atomically. After publication the index is read-only and safe for
// concurrent lookups without locking.
package rank

// Entry is a single (rank, domain) pair from the ranking file.
type Entry struct {
	Rank   int    `json:"rank"`
	Domain string `json:"domain"`
}

// Index holds the two complementary lookup tables built from one parse pass.
// A populated Index is immutable; a rebuild produces a fresh Index rather
// than mutating one in place.
type Index struct {
	byRank   map[int]string
	byDomain map[string]int
	entries  []Entry
	skipped  int
}

func newIndex() *Index {
	return &Index{
		byRank:   make(map[int]string),
		byDomain: make(map[string]int),
	}
}

// Rank returns the rank recorded for an exact, already-normalized domain.
func (idx *Index) Rank(domain string) (int, bool) {
	r, ok := idx.byDomain[domain]
	return r, ok
}

// Domain returns the domain recorded at the given rank.
func (idx *Index) Domain(rank int) (string, bool) {
	d, ok := idx.byRank[rank]
	return d, ok
}

// Len reports the number of entries in the byRank table.
func (idx *Index) Len() int {
	return len(idx.byRank)
}

// Skipped reports how many malformed source lines were discarded during the
// build.
func (idx *Index) Skipped() int {
	return idx.skipped
}

// Top returns the first n accepted entries in original file order. It
// returns fewer when the index is smaller than n.
func (idx *Index) Top(n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n > len(idx.entries) {
		n = len(idx.entries)
	}
	out := make([]Entry, n)
	copy(out, idx.entries[:n])
	return out
}
