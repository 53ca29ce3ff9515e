package srt

import "testing"

func TestStripAnnotations(t *testing.T) {
	file := &File{CRLF: true, Entries: []Entry{
		{Index: 1, TimeRange: "00:00:01,000 --> 00:00:02,000", Lines: []string{"[MUSIC PLAYING]"}},
		{Index: 2, TimeRange: "00:00:03,000 --> 00:00:04,000", Lines: []string{"(laughs) Hello  there", "friend"}},
		{Index: 3, TimeRange: "00:00:05,000 --> 00:00:06,000", Lines: []string{"Plain  line"}},
	}}

	cleaned, stats := StripAnnotations(file, CleanOptions{})
	if len(cleaned.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cleaned.Entries))
	}
	if stats.RemovedCues != 1 || stats.StrippedCues != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	first := cleaned.Entries[0]
	if first.Index != 1 || first.TimeRange != "00:00:03,000 --> 00:00:04,000" {
		t.Fatalf("expected renumbered cue with original timing, got %+v", first)
	}
	if first.Lines[0] != "Hello there" || first.Lines[1] != "friend" {
		t.Fatalf("unexpected cleaned lines %q", first.Lines)
	}
	if cleaned.Entries[1].Index != 2 || cleaned.Entries[1].Lines[0] != "Plain  line" {
		t.Fatalf("untouched line should be preserved, got %+v", cleaned.Entries[1])
	}
	if !cleaned.CRLF {
		t.Fatal("expected format flags to carry over")
	}
	if file.Entries[0].Lines[0] != "[MUSIC PLAYING]" {
		t.Fatal("input file must not be modified")
	}
}

func TestStripAnnotationsRemovesAds(t *testing.T) {
	file := &File{Entries: []Entry{
		{Index: 1, TimeRange: "00:00:01,000 --> 00:00:02,000", Lines: []string{"Subtitles by SomeGroup"}},
		{Index: 2, TimeRange: "00:00:03,000 --> 00:00:04,000", Lines: []string{"Real dialogue"}},
	}}
	cleaned, stats := StripAnnotations(file, CleanOptions{RemoveAds: true})
	if stats.RemovedAds != 1 || len(cleaned.Entries) != 1 {
		t.Fatalf("expected ad cue removed, stats=%+v entries=%d", stats, len(cleaned.Entries))
	}
	if cleaned.Entries[0].Index != 1 {
		t.Fatalf("expected renumbering, got %d", cleaned.Entries[0].Index)
	}
}
