package reassemble

import (
	"errors"
	"strings"
	"testing"

	"subtrans/internal/chunker"
	"subtrans/internal/srt"
)

const source = "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nHow are\nyou?\n\n7\n00:00:05,000 --> 00:00:06,000\nBye\n"

func parse(t *testing.T, content string) *srt.File {
	t.Helper()
	file, err := srt.Parse(content, srt.ParseOptions{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return file
}

func upper(texts []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = strings.ToUpper(text)
	}
	return out
}

func TestMergeReplacesTextAndKeepsTiming(t *testing.T) {
	file := parse(t, source)
	chunks := chunker.Split(file.Entries, chunker.Limits{MaxEntries: 2})
	outcomes := []Outcome{
		{Texts: upper(Texts(chunks[0]))},
		{Texts: upper(Texts(chunks[1]))},
	}

	result, err := Merge(file, chunks, outcomes)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if result.Fallbacks != 0 {
		t.Fatalf("expected no fallbacks, got %d", result.Fallbacks)
	}
	want := "1\n00:00:01,000 --> 00:00:02,000\nHELLO\n\n2\n00:00:03,000 --> 00:00:04,000\nHOW ARE\nYOU?\n\n7\n00:00:05,000 --> 00:00:06,000\nBYE\n"
	if got := srt.Format(result.File); got != want {
		t.Fatalf("unexpected output\nwant %q\n got %q", want, got)
	}
	if file.Entries[0].Lines[0] != "Hello" {
		t.Fatal("original file must not be modified")
	}
}

func TestMergeFallbackKeepsOriginalText(t *testing.T) {
	file := parse(t, source)
	chunks := chunker.Split(file.Entries, chunker.Limits{MaxEntries: 2})
	cause := errors.New("count mismatch")
	outcomes := []Outcome{
		{Err: cause},
		{Texts: upper(Texts(chunks[1]))},
	}

	result, err := Merge(file, chunks, outcomes)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if result.Fallbacks != 1 || len(result.Failures) != 1 {
		t.Fatalf("expected one fallback, got %+v", result)
	}
	if failure := result.Failures[0]; failure.Chunk != 0 || failure.Count != 2 || !errors.Is(failure.Err, cause) {
		t.Fatalf("unexpected failure record %+v", failure)
	}
	for i, entry := range result.File.Entries {
		if entry.Index != file.Entries[i].Index || entry.TimeRange != file.Entries[i].TimeRange {
			t.Fatalf("entry %d changed index or timing", i)
		}
	}
	if result.File.Entries[1].Text() != "How are\nyou?" || result.File.Entries[2].Text() != "BYE" {
		t.Fatalf("unexpected merged texts %+v", result.File.Entries)
	}
}

func TestMergeKeepsEmptyCuesUntouched(t *testing.T) {
	file := parse(t, "1\n00:00:01,000 --> 00:00:02,000\n\n2\n00:00:03,000 --> 00:00:04,000\nHi\n")
	chunks := chunker.Split(file.Entries, chunker.Limits{})
	result, err := Merge(file, chunks, []Outcome{{Texts: []string{"", "SALUT"}}})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if !result.File.Entries[0].IsEmpty() || result.File.Entries[1].Text() != "SALUT" {
		t.Fatalf("unexpected entries %+v", result.File.Entries)
	}
}

func TestMergePreservesLineEndings(t *testing.T) {
	crlf := "\ufeff" + strings.ReplaceAll(source, "\n", "\r\n")
	file := parse(t, crlf)
	chunks := chunker.Split(file.Entries, chunker.Limits{})
	result, err := Merge(file, chunks, []Outcome{{Texts: Texts(chunks[0])}})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if got := srt.Format(result.File); got != crlf {
		t.Fatalf("identity merge must reproduce input\nwant %q\n got %q", crlf, got)
	}
}

func TestMergeRejectsMisalignedOutcomes(t *testing.T) {
	file := parse(t, source)
	chunks := chunker.Split(file.Entries, chunker.Limits{MaxEntries: 2})
	if _, err := Merge(file, chunks, []Outcome{{}}); err == nil {
		t.Fatal("expected error for outcome count mismatch")
	}
	if _, err := Merge(file, chunks, []Outcome{{Texts: []string{"only one"}}, {}}); err == nil {
		t.Fatal("expected error for text count mismatch")
	}
}
