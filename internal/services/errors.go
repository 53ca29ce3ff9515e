package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParse         = errors.New("parse error")
	ErrTransient     = errors.New("transient failure")
	ErrValidation    = errors.New("validation error")
	ErrFatal         = errors.New("fatal error")
	ErrIO            = errors.New("io error")
	ErrConfiguration = errors.New("configuration error")
)

// Kind is the failure class of an error within the pipeline taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindParse
	KindTransient
	KindValidation
	KindFatal
	KindIO
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindFatal:
		return "fatal"
	case KindIO:
		return "io"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto the pipeline taxonomy. Configuration errors are
// fatal since no retry or sibling chunk can succeed with the same settings.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrFatal), errors.Is(err, ErrConfiguration):
		return KindFatal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return Classify(err) == KindFatal
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
