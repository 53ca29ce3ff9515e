package srt

import "strings"

// Entry is a single subtitle cue. Index is informational only; ordering is by
// position within File.Entries.
type Entry struct {
	Index     int
	TimeRange string
	Lines     []string
}

// Text joins the cue lines with newlines.
func (e Entry) Text() string {
	return strings.Join(e.Lines, "\n")
}

// IsEmpty reports whether the cue carries no visible text.
func (e Entry) IsEmpty() bool {
	for _, line := range e.Lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	lines := make([]string, len(e.Lines))
	copy(lines, e.Lines)
	return Entry{Index: e.Index, TimeRange: e.TimeRange, Lines: lines}
}

// File is the ordered cue sequence parsed from one subtitle file together with
// the formatting conventions needed to write it back.
type File struct {
	Entries  []Entry
	CRLF     bool
	BOM      bool
	Warnings []string
}

// Clone returns a deep copy of the file.
func (f *File) Clone() *File {
	if f == nil {
		return nil
	}
	out := &File{
		Entries: make([]Entry, len(f.Entries)),
		CRLF:    f.CRLF,
		BOM:     f.BOM,
	}
	for i, entry := range f.Entries {
		out.Entries[i] = entry.Clone()
	}
	if len(f.Warnings) > 0 {
		out.Warnings = append([]string(nil), f.Warnings...)
	}
	return out
}
