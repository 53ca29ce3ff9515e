package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subtrans/internal/services"
	"subtrans/internal/services/llm"
)

// scriptedCompleter replays a fixed sequence of results, then echoes the
// prompt with a prefix.
type scriptedCompleter struct {
	mu      sync.Mutex
	results []error
	calls   int
	prompts []string
}

func (s *scriptedCompleter) Complete(_ context.Context, _, _, userPrompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, userPrompt)
	if len(s.results) > 0 {
		err := s.results[0]
		s.results = s.results[1:]
		if err != nil {
			return "", err
		}
	}
	return echoTranslation(userPrompt), nil
}

func echoTranslation(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i, line := range lines {
		idx := strings.Index(line, ": ")
		lines[i] = line[:idx+2] + "RO " + line[idx+2:]
	}
	return strings.Join(lines, "\n")
}

type hintedError struct{ delay time.Duration }

func (e hintedError) Error() string                  { return "rate limited" }
func (e hintedError) Unwrap() error                  { return services.ErrTransient }
func (e hintedError) RetryAfterDelay() time.Duration { return e.delay }

func noSleep(context.Context, time.Duration) error { return nil }

func transient(msg string) error {
	return services.Wrap(services.ErrTransient, "test", "complete", msg, nil)
}

func TestClientTranslateSuccess(t *testing.T) {
	completer := &scriptedCompleter{}
	client := NewClient(completer, WithSleeper(noSleep))

	resp, err := client.Translate(context.Background(), Request{Texts: []string{"Hello", "Two\nlines"}, Source: "English", Target: "Romanian"})
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if resp.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", resp.Attempts)
	}
	if resp.Texts[0] != "RO Hello" || resp.Texts[1] != "RO Two\nlines" {
		t.Fatalf("unexpected texts %q", resp.Texts)
	}
}

func TestClientTranslateSkipsBlankTexts(t *testing.T) {
	completer := &scriptedCompleter{}
	client := NewClient(completer, WithSleeper(noSleep))

	resp, err := client.Translate(context.Background(), Request{Texts: []string{"", "Hi", "  "}})
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if completer.prompts[0] != "#1: Hi" {
		t.Fatalf("blank texts must not be sent, prompt=%q", completer.prompts[0])
	}
	if resp.Texts[0] != "" || resp.Texts[1] != "RO Hi" || resp.Texts[2] != "  " {
		t.Fatalf("unexpected realignment %q", resp.Texts)
	}

	completer.calls = 0
	resp, err = client.Translate(context.Background(), Request{Texts: []string{"", " "}})
	if err != nil || completer.calls != 0 || resp.Attempts != 0 {
		t.Fatalf("all-blank chunk must not call the service: calls=%d err=%v", completer.calls, err)
	}
}

func TestClientTranslateRetriesTransientThenSucceeds(t *testing.T) {
	const attempts = 3
	completer := &scriptedCompleter{results: []error{transient("boom"), transient("boom again")}}
	var sleeps []time.Duration
	client := NewClient(completer,
		WithAttempts(attempts),
		WithBackoff(NewBackoff(10*time.Millisecond, time.Second)),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}),
	)

	resp, err := client.Translate(context.Background(), Request{Texts: []string{"Hello"}})
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if resp.Attempts != attempts || resp.Texts[0] != "RO Hello" {
		t.Fatalf("expected success on attempt %d, got %+v", attempts, resp)
	}
	if len(sleeps) != attempts-1 {
		t.Fatalf("expected %d sleeps, got %d", attempts-1, len(sleeps))
	}
	if sleeps[0] < 5*time.Millisecond || sleeps[0] > 10*time.Millisecond {
		t.Fatalf("first delay %s outside jitter window", sleeps[0])
	}
	if sleeps[1] < 10*time.Millisecond || sleeps[1] > 20*time.Millisecond {
		t.Fatalf("second delay %s outside jitter window", sleeps[1])
	}
	if got := client.Backoff().Retries(); got != attempts-1 {
		t.Fatalf("expected %d recorded retries, got %d", attempts-1, got)
	}
}

func TestClientTranslateExhaustsRetries(t *testing.T) {
	completer := &scriptedCompleter{results: []error{transient("a"), transient("b"), transient("c")}}
	client := NewClient(completer, WithAttempts(3), WithSleeper(noSleep))

	_, err := client.Translate(context.Background(), Request{Texts: []string{"Hello"}})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if services.Classify(err) != services.KindTransient {
		t.Fatalf("expected transient kind, got %s", services.Classify(err))
	}
	if completer.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", completer.calls)
	}
}

func TestClientTranslateUnknownErrorsAreRetried(t *testing.T) {
	completer := &scriptedCompleter{results: []error{errors.New("connection reset")}}
	client := NewClient(completer, WithAttempts(2), WithSleeper(noSleep))
	if _, err := client.Translate(context.Background(), Request{Texts: []string{"Hello"}}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if completer.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", completer.calls)
	}
}

func TestClientTranslateDoesNotRetryNonTransient(t *testing.T) {
	cases := map[string]error{
		"fatal":      services.Wrap(services.ErrFatal, "test", "complete", "unauthorized", nil),
		"validation": services.Wrap(services.ErrValidation, "test", "complete", "bad request", nil),
		"canceled":   fmt.Errorf("call: %w", context.Canceled),
	}
	for name, injected := range cases {
		t.Run(name, func(t *testing.T) {
			completer := &scriptedCompleter{results: []error{injected}}
			client := NewClient(completer, WithAttempts(5), WithSleeper(noSleep))
			_, err := client.Translate(context.Background(), Request{Texts: []string{"Hello"}})
			if !errors.Is(err, injected) {
				t.Fatalf("expected injected error, got %v", err)
			}
			if completer.calls != 1 {
				t.Fatalf("expected a single call, got %d", completer.calls)
			}
		})
	}
}

type fixedCompleter struct {
	reply string
	calls atomic.Int32
}

func (f *fixedCompleter) Complete(context.Context, string, string, string) (string, error) {
	f.calls.Add(1)
	return f.reply, nil
}

func TestClientTranslateCountMismatchIsValidation(t *testing.T) {
	completer := &fixedCompleter{reply: "#1: only one"}
	client := NewClient(completer, WithAttempts(3), WithSleeper(noSleep))

	_, err := client.Translate(context.Background(), Request{Texts: []string{"a", "b"}})
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if protoErr.Expected != 2 || protoErr.Got != 1 {
		t.Fatalf("unexpected counts %+v", protoErr)
	}
	if completer.calls.Load() != 1 {
		t.Fatalf("validation errors must not be retried, calls=%d", completer.calls.Load())
	}
}

func TestClientTranslateRetryAfterPausesSharedState(t *testing.T) {
	completer := &scriptedCompleter{results: []error{hintedError{delay: 40 * time.Millisecond}}}
	backoff := NewBackoff(time.Millisecond, time.Second)
	var slept time.Duration
	client := NewClient(completer,
		WithAttempts(2),
		WithBackoff(backoff),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			slept = d
			return nil
		}),
	)

	start := time.Now()
	if _, err := client.Translate(context.Background(), Request{Texts: []string{"Hello"}}); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if slept != 0 {
		t.Fatalf("retry-after should replace the backoff sleep, slept %s", slept)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected shared pause to delay the retry, elapsed %s", elapsed)
	}
}

type blockingCompleter struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (b *blockingCompleter) Complete(_ context.Context, _, _, userPrompt string) (string, error) {
	current := b.inFlight.Add(1)
	for {
		peak := b.peak.Load()
		if current <= peak || b.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	b.inFlight.Add(-1)
	return echoTranslation(userPrompt), nil
}

func TestClientTranslateLimiterBoundsInFlight(t *testing.T) {
	completer := &blockingCompleter{}
	limiter := NewLimiter(2)
	client := NewClient(completer, WithLimiter(limiter), WithSleeper(noSleep))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Translate(context.Background(), Request{Texts: []string{"x"}}); err != nil {
				t.Errorf("Translate returned error: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak := completer.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", peak)
	}
}

func TestClientTranslateRetriesHTTPTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if calls.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		prompt := body.Messages[len(body.Messages)-1].Content
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"content": echoTranslation(prompt)}}},
		})
	}))
	defer server.Close()

	completer := llm.NewClient(llm.Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		llm.WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	client := NewClient(completer, WithAttempts(3), WithSleeper(noSleep))

	resp, err := client.Translate(context.Background(), Request{Texts: []string{"Hello"}})
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if resp.Attempts != 2 || calls.Load() != 2 || resp.Texts[0] != "RO Hello" {
		t.Fatalf("expected retry after timeout, got attempts=%d calls=%d texts=%q", resp.Attempts, calls.Load(), resp.Texts)
	}
}

func TestClientTranslateBlankEntryIsValidation(t *testing.T) {
	completer := &fixedCompleter{reply: "#1:\n#2: dos"}
	client := NewClient(completer, WithAttempts(3), WithSleeper(noSleep))

	resp, err := client.Translate(context.Background(), Request{Texts: []string{"one", "two"}})
	if services.Classify(err) != services.KindValidation {
		t.Fatalf("expected validation error, got texts=%q err=%v", resp.Texts, err)
	}
	if resp.Texts != nil {
		t.Fatalf("rejected reply must not return texts, got %q", resp.Texts)
	}
}
