package srt

import (
	"strconv"
	"strings"
)

// Format serializes the file using the standard block layout: index line,
// time-range line, text lines, and a blank separator between cues. The output
// ends with a single line break and honours the file's CRLF and BOM flags.
func Format(file *File) string {
	if file == nil || len(file.Entries) == 0 {
		return ""
	}
	newline := "\n"
	if file.CRLF {
		newline = "\r\n"
	}
	var b strings.Builder
	if file.BOM {
		b.WriteString(utf8BOM)
	}
	for i, entry := range file.Entries {
		if i > 0 {
			b.WriteString(newline)
		}
		b.WriteString(strconv.Itoa(entry.Index))
		b.WriteString(newline)
		b.WriteString(entry.TimeRange)
		b.WriteString(newline)
		for _, line := range entry.Lines {
			b.WriteString(line)
			b.WriteString(newline)
		}
	}
	return b.String()
}
