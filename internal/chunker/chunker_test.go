package chunker

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"subtrans/internal/srt"
)

func makeEntries(texts ...string) []srt.Entry {
	entries := make([]srt.Entry, len(texts))
	for i, text := range texts {
		entries[i] = srt.Entry{
			Index:     i + 1,
			TimeRange: fmt.Sprintf("00:00:%02d,000 --> 00:00:%02d,500", i, i),
			Lines:     strings.Split(text, "\n"),
		}
	}
	return entries
}

func flatten(chunks []Chunk) []srt.Entry {
	var out []srt.Entry
	for _, chunk := range chunks {
		out = append(out, chunk.Entries...)
	}
	return out
}

func TestSplitByEntryCount(t *testing.T) {
	entries := makeEntries("a", "b", "c")
	chunks := Split(entries, Limits{MaxEntries: 2})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Len() != 2 || chunks[1].Len() != 1 {
		t.Fatalf("unexpected chunk sizes %d, %d", chunks[0].Len(), chunks[1].Len())
	}
	if chunks[1].Start != 2 || chunks[1].Index != 1 || chunks[0].End() != 2 {
		t.Fatalf("unexpected chunk positions %+v", chunks)
	}
}

func TestSplitByCharacterCap(t *testing.T) {
	entries := makeEntries("aaaa", "bbbb", "cc", "dddddd")
	chunks := Split(entries, Limits{MaxEntries: 10, MaxChars: 8})
	sizes := make([]int, len(chunks))
	for i, chunk := range chunks {
		sizes[i] = chunk.Len()
	}
	if fmt.Sprint(sizes) != "[2 2]" {
		t.Fatalf("unexpected chunk sizes %v", sizes)
	}
}

func TestSplitOversizedEntryStandsAlone(t *testing.T) {
	entries := makeEntries("ab", strings.Repeat("x", 50), "cd")
	chunks := Split(entries, Limits{MaxEntries: 10, MaxChars: 10})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Len() != 1 || chunks[1].Entries[0].Index != 2 {
		t.Fatalf("expected oversized entry alone, got %+v", chunks[1])
	}
}

func TestSplitCountsRunes(t *testing.T) {
	entries := makeEntries("ăîșțâ", "ăîșțâ")
	chunks := Split(entries, Limits{MaxChars: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected rune counting to fit both entries, got %d chunks", len(chunks))
	}
}

func TestSplitDefaultsAndEmpty(t *testing.T) {
	if chunks := Split(nil, Limits{}); chunks != nil {
		t.Fatalf("expected nil for empty input, got %v", chunks)
	}
	texts := make([]string, DefaultMaxEntries+1)
	for i := range texts {
		texts[i] = "line"
	}
	chunks := Split(makeEntries(texts...), Limits{})
	if len(chunks) != 2 || chunks[0].Len() != DefaultMaxEntries {
		t.Fatalf("expected default cap of %d, got %d chunks", DefaultMaxEntries, len(chunks))
	}
}

func TestSplitPartitionIsExact(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 200; trial++ {
		count := rng.IntN(40)
		texts := make([]string, count)
		for i := range texts {
			texts[i] = strings.Repeat("w", rng.IntN(30))
		}
		entries := makeEntries(texts...)
		limits := Limits{MaxEntries: 1 + rng.IntN(8), MaxChars: rng.IntN(60)}
		chunks := Split(entries, limits)

		got := flatten(chunks)
		if len(got) != len(entries) {
			t.Fatalf("trial %d: expected %d entries, got %d", trial, len(entries), len(got))
		}
		for i := range entries {
			if got[i].Index != entries[i].Index || got[i].TimeRange != entries[i].TimeRange {
				t.Fatalf("trial %d: entry %d out of order", trial, i)
			}
		}
		next := 0
		for i, chunk := range chunks {
			if chunk.Index != i || chunk.Start != next || chunk.Len() == 0 {
				t.Fatalf("trial %d: bad chunk %d: %+v", trial, i, chunk)
			}
			if chunk.Len() > limits.MaxEntries {
				t.Fatalf("trial %d: chunk %d exceeds entry cap", trial, i)
			}
			if limits.MaxChars > 0 && chunk.Len() > 1 {
				total := 0
				for _, entry := range chunk.Entries {
					total += TextSize(entry)
				}
				if total > limits.MaxChars {
					t.Fatalf("trial %d: chunk %d exceeds char cap", trial, i)
				}
			}
			next = chunk.End()
		}
	}
}
