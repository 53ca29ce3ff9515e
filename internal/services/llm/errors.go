package llm

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"subtrans/internal/services"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	delay, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: delay,
	}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, snippet(e.Body))
}

// Unwrap tags the status with the matching failure class.
func (e *StatusError) Unwrap() error {
	return statusClass(e.StatusCode)
}

// RetryAfterDelay exposes the server's Retry-After hint (zero when absent).
func (e *StatusError) RetryAfterDelay() time.Duration {
	return e.RetryAfter
}

// statusClass maps an HTTP status to a failure marker. Anything not listed
// as fatal or transient means the request itself was rejected.
func statusClass(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusNotFound:
		return services.ErrFatal
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return services.ErrTransient
	}
	if code >= http.StatusInternalServerError {
		return services.ErrTransient
	}
	return services.ErrValidation
}

// emptyContentError reports a 2xx completion that carried no text, usually a
// truncated or refused generation.
type emptyContentError struct {
	op           string
	finishReason string
	refusal      string
	body         string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.op, e.finishReason, e.refusal, e.body)
}

func (e *emptyContentError) Unwrap() error { return services.ErrTransient }

// parseRetryAfter accepts delta-seconds or an HTTP date. Negative, past or
// unparseable values report false.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	var delay time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		delay = time.Duration(seconds) * time.Second
	} else if when, err := http.ParseTime(value); err == nil {
		delay = time.Until(when)
	} else {
		return 0, false
	}
	if delay < 0 {
		return 0, false
	}
	return delay, true
}
