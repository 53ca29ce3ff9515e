package logging

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldEventType,
	"error_kind",
	"error",
	FieldErrorHint,
	FieldImpact,
	"output",
	"entries",
	"chunks",
	"fallbacks",
	"attempts",
	"written",
	"written_with_fallbacks",
	"failed",
	"files",
	"duration",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	consider := func(idx int) {
		attr := attrs[idx]
		used[idx] = true
		if skipInfoKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		val := formatValueForKey(attr.key, attr.value)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			return
		}
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: val})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				consider(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			consider(idx)
		}
	}
	return result, hidden
}

// formatValueForKey applies friendlier formatting for durations and booleans.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return v.Duration().Round(time.Millisecond).String()
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" {
		value = truncateErrorValue(value)
	}
	return value
}

func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		key == "duration" ||
		key == "delay"
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldFile, FieldChunk, FieldState:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case "", FieldRequestID, FieldRunID, "model", "first_entry", "max_attempts":
		return true
	}
	return strings.HasSuffix(key, "_id") || strings.HasSuffix(key, "_path")
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error", "detail", "output":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case "error_kind":
		return "Kind"
	case "written_with_fallbacks":
		return "With Fallbacks"
	default:
		return titleizeKey(key)
	}
}

// titleizeKey turns snake_case keys into "Snake Case" labels.
func titleizeKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}
