package rank

import (
	"errors"
	"strings"
	"testing"
)

func TestParseBuildsBothTables(t *testing.T) {
	idx, err := Parse(strings.NewReader("1,google.com\n2,youtube.com\n3,facebook.com\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", idx.Len())
	}
	if idx.Skipped() != 0 {
		t.Errorf("expected 0 skipped lines, got %d", idx.Skipped())
	}

	r, ok := idx.Rank("google.com")
	if !ok || r != 1 {
		t.Errorf("Rank(google.com) = %d, %v; want 1, true", r, ok)
	}
	d, ok := idx.Domain(2)
	if !ok || d != "youtube.com" {
		t.Errorf("Domain(2) = %q, %v; want youtube.com, true", d, ok)
	}
}

func TestParseRoundTrip(t *testing.T) {
	idx, err := Parse(strings.NewReader("1,google.com\n2,youtube.com\n3,facebook.com\n4,x.com\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	for _, e := range idx.Top(idx.Len()) {
		d, ok := idx.Domain(e.Rank)
		if !ok {
			t.Fatalf("Domain(%d) missing", e.Rank)
		}
		r, ok := idx.Rank(d)
		if !ok || r != e.Rank {
			t.Errorf("Rank(Domain(%d)) = %d, %v; want %d, true", e.Rank, r, ok, e.Rank)
		}
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"1,google.com",
		"0,example.com",    // non-positive rank
		"-5,negative.com",  // negative rank
		"5,",               // empty domain
		"6,   ",            // whitespace-only domain
		"abc,notanumber.c", // unparsable rank
		" 7,padded.com",    // rank field is not trimmed
		"nofieldseparator",
		"",
		"2,youtube.com",
	}, "\n")

	idx, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}
	if idx.Skipped() != 8 {
		t.Errorf("expected 8 skipped lines, got %d", idx.Skipped())
	}

	// The skipped lines must leave no trace in either table.
	if _, ok := idx.Rank("example.com"); ok {
		t.Error("zero-rank line produced a byDomain entry")
	}
	if _, ok := idx.Domain(0); ok {
		t.Error("zero-rank line produced a byRank entry")
	}
	if _, ok := idx.Domain(5); ok {
		t.Error("empty-domain line produced a byRank entry")
	}
	if _, ok := idx.Rank("padded.com"); ok {
		t.Error("padded rank field was accepted")
	}
}

func TestParseLastWriteWins(t *testing.T) {
	// Duplicate domain: the later rank wins in byDomain while both byRank
	// slots keep pointing at the domain.
	idx, err := Parse(strings.NewReader("1,example.com\n2,example.com\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if r, _ := idx.Rank("example.com"); r != 2 {
		t.Errorf("duplicate domain: Rank = %d, want 2", r)
	}
	if d, _ := idx.Domain(1); d != "example.com" {
		t.Errorf("Domain(1) = %q, want example.com", d)
	}
	if d, _ := idx.Domain(2); d != "example.com" {
		t.Errorf("Domain(2) = %q, want example.com", d)
	}

	// Duplicate rank: the later domain wins in byRank.
	idx, err = Parse(strings.NewReader("7,first.com\n7,second.com\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d, _ := idx.Domain(7); d != "second.com" {
		t.Errorf("duplicate rank: Domain = %q, want second.com", d)
	}
	if r, ok := idx.Rank("first.com"); !ok || r != 7 {
		t.Errorf("Rank(first.com) = %d, %v; want 7, true", r, ok)
	}
}

func TestParseTrimsAndLowercasesDomain(t *testing.T) {
	idx, err := Parse(strings.NewReader("1,  ExAmPlE.CoM  \n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if r, ok := idx.Rank("example.com"); !ok || r != 1 {
		t.Errorf("Rank(example.com) = %d, %v; want 1, true", r, ok)
	}
}

func TestParseHandlesCRLF(t *testing.T) {
	idx, err := Parse(strings.NewReader("1,google.com\r\n2,youtube.com\r\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if idx.Len() != 2 || idx.Skipped() != 0 {
		t.Errorf("got %d entries, %d skipped; want 2, 0", idx.Len(), idx.Skipped())
	}
}

func TestParseSplitsOnFirstCommaOnly(t *testing.T) {
	idx, err := Parse(strings.NewReader("1,weird,domain.com\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if r, ok := idx.Rank("weird,domain.com"); !ok || r != 1 {
		t.Errorf("Rank(weird,domain.com) = %d, %v; want 1, true", r, ok)
	}
}

func TestParsePreservesFileOrder(t *testing.T) {
	idx, err := Parse(strings.NewReader("10,a.com\n2,b.com\n30,c.com\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := idx.Top(3)
	want := []Entry{{10, "a.com"}, {2, "b.com"}, {30, "c.com"}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Top[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if short := idx.Top(100); len(short) != 3 {
		t.Errorf("Top(100) returned %d entries, want 3", len(short))
	}
}

func TestParseEmptyInput(t *testing.T) {
	idx, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if idx.Len() != 0 || idx.Skipped() != 0 {
		t.Errorf("got %d entries, %d skipped; want 0, 0", idx.Len(), idx.Skipped())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream corrupted")
}

func TestParseSurfacesReaderError(t *testing.T) {
	if _, err := Parse(failingReader{}); err == nil {
		t.Fatal("expected error from failing reader, got nil")
	}
}
