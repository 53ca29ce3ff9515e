package chunker

import (
	"unicode/utf8"

	"subtrans/internal/srt"
)

// DefaultMaxEntries is used when Limits.MaxEntries is not positive.
const DefaultMaxEntries = 50

// Limits bounds a single chunk. MaxChars counts runes of entry text; zero or
// negative disables the character cap.
type Limits struct {
	MaxEntries int
	MaxChars   int
}

// Chunk is a contiguous run of entries. Start is the position of the first
// entry within the source file.
type Chunk struct {
	Index   int
	Start   int
	Entries []srt.Entry
}

// Len returns the number of entries in the chunk.
func (c Chunk) Len() int { return len(c.Entries) }

// End returns the position one past the last entry.
func (c Chunk) End() int { return c.Start + len(c.Entries) }

// Split walks entries in order and closes the current chunk whenever adding
// the next entry would exceed either cap. An entry larger than MaxChars on its
// own still gets a chunk of its own. Entries are shared with the input slice.
func Split(entries []srt.Entry, limits Limits) []Chunk {
	if len(entries) == 0 {
		return nil
	}
	maxEntries := limits.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	var chunks []Chunk
	start := 0
	chars := 0
	for i, entry := range entries {
		size := TextSize(entry)
		count := i - start
		if count > 0 && (count >= maxEntries || (limits.MaxChars > 0 && chars+size > limits.MaxChars)) {
			chunks = append(chunks, Chunk{Index: len(chunks), Start: start, Entries: entries[start:i:i]})
			start = i
			chars = 0
		}
		chars += size
	}
	chunks = append(chunks, Chunk{Index: len(chunks), Start: start, Entries: entries[start:len(entries):len(entries)]})
	return chunks
}

// TextSize reports the rune length of an entry's joined text.
func TextSize(entry srt.Entry) int {
	return utf8.RuneCountInString(entry.Text())
}
