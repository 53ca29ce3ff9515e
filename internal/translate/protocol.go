package translate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"subtrans/internal/services"
)

// lineBreakToken carries in-cue line breaks through the one-line-per-entry
// protocol.
const lineBreakToken = "<br>"

var markerPattern = regexp.MustCompile(`^#(\d+):\s?(.*)$`)

// ProtocolError reports a reply that cannot be aligned with its request.
type ProtocolError struct {
	Reason   string
	Expected int
	Got      int
	Snippet  string
}

func (e *ProtocolError) Error() string {
	if e.Expected > 0 {
		return fmt.Sprintf("translation protocol: %s (expected %d, got %d)", e.Reason, e.Expected, e.Got)
	}
	return "translation protocol: " + e.Reason
}

// Unwrap tags protocol failures as validation errors.
func (e *ProtocolError) Unwrap() error {
	return services.ErrValidation
}

// EncodeTexts renders texts as "#N: text" lines, numbered from 1.
func EncodeTexts(texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(": ")
		b.WriteString(encodeText(text))
	}
	return b.String()
}

func encodeText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, lineBreakToken)
}

// DecodeTexts parses a numbered-line reply and returns exactly want texts in
// request order. Prose before the first marker and markdown fence lines are
// ignored. Any other unmarked line, and any marker with no text, is a
// protocol error: requests only carry non-blank texts and in-cue breaks
// travel as <br>.
func DecodeTexts(content string, want int) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ProtocolError{Reason: "empty reply", Expected: want}
	}

	out := make([]string, want)
	seen := make([]bool, want)
	count := 0
	for _, raw := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		match := markerPattern.FindStringSubmatch(line)
		if match == nil {
			if count == 0 {
				continue
			}
			return nil, &ProtocolError{Reason: "unmarked line " + strconv.Quote(snippet(line)), Expected: want, Got: count}
		}
		number, err := strconv.Atoi(match[1])
		if err != nil || number < 1 || number > want {
			return nil, &ProtocolError{Reason: fmt.Sprintf("entry number %s out of range", match[1]), Expected: want, Got: count + 1}
		}
		idx := number - 1
		if seen[idx] {
			return nil, &ProtocolError{Reason: fmt.Sprintf("entry %d repeated", number), Expected: want, Got: count + 1}
		}
		text := decodeText(match[2])
		if text == "" {
			return nil, &ProtocolError{Reason: fmt.Sprintf("entry %d empty", number), Expected: want, Got: count}
		}
		seen[idx] = true
		out[idx] = text
		count++
	}

	if count != want {
		return nil, &ProtocolError{Reason: "entry count mismatch", Expected: want, Got: count}
	}
	return out, nil
}

func snippet(line string) string {
	const limit = 40
	if runes := []rune(line); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return line
}

func decodeText(text string) string {
	parts := strings.Split(text, lineBreakToken)
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}

// SystemPrompt instructs the model to keep the numbered-line layout.
func SystemPrompt(source, target string) string {
	return fmt.Sprintf(`You translate subtitle dialogue from %[1]s to %[2]s.
Each input line has the form "#N: text". Reply with exactly one line per input line, in the same order, using the same "#N: " prefix.
Keep %[3]s tokens where they appear. Do not merge, split, skip, or add lines. Do not add commentary.`,
		source, target, lineBreakToken)
}
