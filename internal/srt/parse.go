package srt

import (
	"fmt"
	"strconv"
	"strings"

	"subtrans/internal/services"
)

const utf8BOM = "\ufeff"

// ParseOptions tunes how malformed input is treated.
type ParseOptions struct {
	// Lenient skips malformed blocks instead of failing the whole parse.
	Lenient bool
	// DropEmpty discards cues that have an index and time range but no text.
	DropEmpty bool
}

// ParseError describes the first malformed block encountered in strict mode.
type ParseError struct {
	Block  int // 1-based block number
	Line   int // 1-based line number of the block start
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("srt parse: block %d (line %d): %s", e.Block, e.Line, e.Reason)
}

// Unwrap tags parse failures with the shared parse marker.
func (e *ParseError) Unwrap() error {
	return services.ErrParse
}

type rawBlock struct {
	number int
	line   int
	lines  []string
}

// Parse converts subtitle text into entries. Blocks are separated by one or
// more blank lines; each block is an index line, a time-range line containing
// "-->", and zero or more text lines.
func Parse(content string, opts ParseOptions) (*File, error) {
	file := &File{}
	if strings.HasPrefix(content, utf8BOM) {
		file.BOM = true
		content = strings.TrimPrefix(content, utf8BOM)
	}
	if strings.Contains(content, "\r\n") {
		file.CRLF = true
	}
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	for _, block := range splitRawBlocks(normalized) {
		entry, reason := parseBlock(block.lines)
		if reason != "" {
			if !opts.Lenient {
				return nil, &ParseError{Block: block.number, Line: block.line, Reason: reason}
			}
			file.Warnings = append(file.Warnings, fmt.Sprintf("skipped block %d (line %d): %s", block.number, block.line, reason))
			continue
		}
		if opts.DropEmpty && entry.IsEmpty() {
			file.Warnings = append(file.Warnings, fmt.Sprintf("dropped empty cue %d (line %d)", entry.Index, block.line))
			continue
		}
		file.Entries = append(file.Entries, entry)
	}
	return file, nil
}

func splitRawBlocks(content string) []rawBlock {
	lines := strings.Split(content, "\n")
	var blocks []rawBlock
	var current *rawBlock
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			current = nil
			continue
		}
		if current == nil {
			blocks = append(blocks, rawBlock{number: len(blocks) + 1, line: i + 1})
			current = &blocks[len(blocks)-1]
		}
		current.lines = append(current.lines, line)
	}
	return blocks
}

func parseBlock(lines []string) (Entry, string) {
	indexText := strings.TrimSpace(lines[0])
	index, err := strconv.Atoi(indexText)
	if err != nil || index <= 0 {
		return Entry{}, fmt.Sprintf("invalid index %q", truncate(indexText, 40))
	}
	if len(lines) < 2 {
		return Entry{}, "missing time range"
	}
	// The time range and text lines are kept byte for byte.
	timeRange := lines[1]
	if !strings.Contains(timeRange, "-->") {
		return Entry{}, fmt.Sprintf("invalid time range %q", truncate(strings.TrimSpace(timeRange), 60))
	}
	text := make([]string, len(lines)-2)
	copy(text, lines[2:])
	return Entry{Index: index, TimeRange: timeRange, Lines: text}, ""
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
