package reassemble

import (
	"fmt"
	"strings"

	"subtrans/internal/chunker"
	"subtrans/internal/srt"
)

// Outcome is the result of translating one chunk. A nil Texts slice marks a
// fallback to the original text; Err records why.
type Outcome struct {
	Texts []string
	Err   error
}

// Fallback reports whether the chunk kept its original text.
func (o Outcome) Fallback() bool {
	return o.Texts == nil
}

// Result is the merged file plus fallback accounting.
type Result struct {
	File      *srt.File
	Fallbacks int
	Failures  []ChunkFailure
}

// ChunkFailure identifies a chunk that fell back and why.
type ChunkFailure struct {
	Chunk int
	Start int
	Count int
	Err   error
}

// Merge builds the output file. outcomes must be indexed like chunks; a
// successful outcome must carry exactly one text per chunk entry.
func Merge(original *srt.File, chunks []chunker.Chunk, outcomes []Outcome) (Result, error) {
	if original == nil {
		return Result{}, fmt.Errorf("reassemble: nil file")
	}
	if len(outcomes) != len(chunks) {
		return Result{}, fmt.Errorf("reassemble: %d outcomes for %d chunks", len(outcomes), len(chunks))
	}

	out := original.Clone()
	out.Warnings = nil
	var result Result
	for i, chunk := range chunks {
		if chunk.End() > len(out.Entries) {
			return Result{}, fmt.Errorf("reassemble: chunk %d spans past end of file", chunk.Index)
		}
		outcome := outcomes[i]
		if outcome.Fallback() {
			result.Fallbacks++
			result.Failures = append(result.Failures, ChunkFailure{
				Chunk: chunk.Index,
				Start: chunk.Start,
				Count: chunk.Len(),
				Err:   outcome.Err,
			})
			continue
		}
		if len(outcome.Texts) != chunk.Len() {
			return Result{}, fmt.Errorf("reassemble: chunk %d has %d texts for %d entries", chunk.Index, len(outcome.Texts), chunk.Len())
		}
		for j, text := range outcome.Texts {
			entry := &out.Entries[chunk.Start+j]
			if entry.IsEmpty() {
				continue
			}
			entry.Lines = strings.Split(text, "\n")
		}
	}
	result.File = out
	return result, nil
}

// Texts returns the joined text of each entry in chunk order.
func Texts(chunk chunker.Chunk) []string {
	texts := make([]string, chunk.Len())
	for i, entry := range chunk.Entries {
		texts[i] = entry.Text()
	}
	return texts
}
