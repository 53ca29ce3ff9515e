package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders one header line per record followed by indented
// fields. Clones share the writer lock so concurrent pipeline loggers never
// interleave lines.
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)

	header := recordHeader{
		ts:      record.Time,
		level:   record.Level,
		message: strings.TrimSpace(record.Message),
	}
	if header.ts.IsZero() {
		header.ts = time.Now()
	}
	if header.message == "" {
		header.message = "(no message)"
	}
	if h.addSource {
		header.source = record.Source()
	}
	for _, field := range kvs {
		value := attrString(field.value)
		switch field.key {
		case FieldComponent:
			header.component = value
		case FieldFile:
			header.subject.file = value
		case FieldChunk:
			header.subject.chunk = value
		case FieldState:
			header.subject.state = value
		}
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(kvs)*32)
	header.write(&buf)
	if record.Level < slog.LevelInfo {
		writeDebugFields(&buf, kvs)
	} else {
		writeInfoFields(&buf, kvs)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// writeInfoFields prints the highlighted fields, one per line, and a count
// of anything left out.
func writeInfoFields(buf *bytes.Buffer, attrs []kv) {
	buf.WriteByte('\n')
	fields, hidden := selectInfoFields(attrs, infoAttrLimit, false)
	for _, field := range fields {
		fmt.Fprintf(buf, "    - %s: %s\n", field.label, field.value)
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(buf, "    + %d more fields hidden\n", hidden)
	}
}

// writeDebugFields prints every field under its raw key.
func writeDebugFields(buf *bytes.Buffer, attrs []kv) {
	buf.WriteByte('\n')
	for _, field := range attrs {
		fmt.Fprintf(buf, "    %s: %s\n", field.key, formatValue(field.value))
	}
}

// recordHeader is the first line of every console record:
// "ts LEVEL [component] file · chunk N (state) – message [file.go:42]".
type recordHeader struct {
	ts        time.Time
	level     slog.Level
	component string
	subject   subjectParts
	message   string
	source    *slog.Source
}

func (r recordHeader) write(buf *bytes.Buffer) {
	buf.WriteString(formatTimestamp(r.ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(r.level))
	if r.component != "" {
		fmt.Fprintf(buf, " [%s]", r.component)
	}
	if text := r.subject.String(); text != "" {
		buf.WriteByte(' ')
		buf.WriteString(text)
	}
	buf.WriteString(" – ")
	buf.WriteString(r.message)
	if r.source != nil && r.source.File != "" {
		fmt.Fprintf(buf, " [%s:%d]", filepath.Base(r.source.File), r.source.Line)
	}
}

// subjectParts is the file/chunk/state triple shown after the component.
type subjectParts struct {
	file  string
	chunk string
	state string
}

func (s subjectParts) String() string {
	parts := make([]string, 0, 3)
	if file := strings.TrimSpace(s.file); file != "" {
		parts = append(parts, file)
	}
	if chunk := strings.TrimSpace(s.chunk); chunk != "" {
		parts = append(parts, "chunk "+chunk)
	}
	if state := strings.TrimSpace(s.state); state != "" {
		parts = append(parts, "("+state+")")
	}
	return strings.Join(parts, " · ")
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	clone := &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
	}
	if len(h.attrs) > 0 {
		clone.attrs = make([]slog.Attr, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	if len(h.groups) > 0 {
		clone.groups = make([]string, len(h.groups))
		copy(clone.groups, h.groups)
	}
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	switch attr.Value.Kind() {
	case slog.KindGroup:
		values := attr.Value.Group()
		nextPrefix := prefix
		if attr.Key != "" {
			nextPrefix = appendPrefix(prefix, attr.Key)
		}
		flattenAttrs(dst, nextPrefix, values)
	default:
		key := attr.Key
		if len(prefix) > 0 {
			if key != "" {
				key = strings.Join(append(prefix, key), ".")
			} else {
				key = strings.Join(prefix, ".")
			}
		}
		if key == "" {
			key = attr.Key
		}
		*dst = append(*dst, kv{key: key, value: attr.Value})
	}
}

func appendPrefix(prefix []string, value string) []string {
	if len(prefix) == 0 {
		return []string{value}
	}
	out := make([]string, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = value
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
