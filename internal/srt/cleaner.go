package srt

import (
	"regexp"
	"strings"
)

var annotationPattern = regexp.MustCompile(`\[.*?\]|\(.*?\)`)

var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)opensubtitles`),
	regexp.MustCompile(`(?i)subtitles? by`),
	regexp.MustCompile(`(?i)synced? and corrected`),
	regexp.MustCompile(`(?i)advertise (your|yours?) product`),
	regexp.MustCompile(`(?i)http(s)?://`),
	regexp.MustCompile(`(?i)\bwww\.`),
	regexp.MustCompile(`(?i)\bsubscene\b`),
	regexp.MustCompile(`(?i)\byts\b`),
	regexp.MustCompile(`(?i)\byify\b`),
}

// CleanOptions selects the cleanup passes applied by StripAnnotations.
type CleanOptions struct {
	// RemoveAds drops cues that look like release-group or site advertisements.
	RemoveAds bool
}

// CleanStats reports the effects of subtitle cleanup operations.
type CleanStats struct {
	StrippedCues int
	RemovedCues  int
	RemovedAds   int
}

// StripAnnotations removes [bracketed] and (parenthesized) spans from cue text,
// drops cues left without text, and renumbers the survivors from 1. Time
// ranges are untouched. The input file is not modified.
func StripAnnotations(file *File, opts CleanOptions) (*File, CleanStats) {
	var stats CleanStats
	if file == nil {
		return &File{}, stats
	}
	out := &File{CRLF: file.CRLF, BOM: file.BOM}
	for _, entry := range file.Entries {
		if opts.RemoveAds && isAdvertisement(entry) {
			stats.RemovedAds++
			continue
		}
		lines, changed := stripLines(entry.Lines)
		if changed {
			stats.StrippedCues++
		}
		if len(lines) == 0 {
			stats.RemovedCues++
			continue
		}
		out.Entries = append(out.Entries, Entry{
			Index:     len(out.Entries) + 1,
			TimeRange: entry.TimeRange,
			Lines:     lines,
		})
	}
	return out, stats
}

func stripLines(lines []string) ([]string, bool) {
	changed := false
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := annotationPattern.ReplaceAllString(line, "")
		if cleaned != line {
			changed = true
			cleaned = strings.Join(strings.Fields(cleaned), " ")
		}
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		kept = append(kept, cleaned)
	}
	return kept, changed
}

func isAdvertisement(entry Entry) bool {
	payload := strings.ToLower(strings.TrimSpace(strings.Join(entry.Lines, " ")))
	if payload == "" {
		return false
	}
	for _, pattern := range adPatterns {
		if pattern.MatchString(payload) {
			return true
		}
	}
	return false
}
