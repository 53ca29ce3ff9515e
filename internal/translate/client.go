package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"subtrans/internal/logging"
	"subtrans/internal/services"
)

// DefaultAttempts is used when no attempt count is configured.
const DefaultAttempts = 3

// Completer is the remote text capability: one prompt in, raw text out.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Request is one chunk's worth of cue texts.
type Request struct {
	Texts  []string
	Source string
	Target string
	Model  string
}

// Response carries translated texts aligned with Request.Texts.
type Response struct {
	Texts    []string
	Attempts int
}

// retryAfterHinter is implemented by errors that carry a server retry hint.
type retryAfterHinter interface {
	RetryAfterDelay() time.Duration
}

// Client wraps a Completer with the numbered-line protocol and retry policy.
type Client struct {
	completer Completer
	attempts  int
	backoff   *Backoff
	limiter   *Limiter
	sleeper   func(context.Context, time.Duration) error
	logger    *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithAttempts sets the maximum attempts per chunk (defaults to 3).
func WithAttempts(attempts int) Option {
	return func(c *Client) {
		c.attempts = attempts
	}
}

// WithBackoff shares retry state across clients.
func WithBackoff(backoff *Backoff) Option {
	return func(c *Client) {
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// WithLimiter shares the in-flight call limiter across clients.
func WithLimiter(limiter *Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a translation client around completer.
func NewClient(completer Completer, opts ...Option) *Client {
	c := &Client{
		completer: completer,
		attempts:  DefaultAttempts,
		sleeper:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.attempts <= 0 {
		c.attempts = 1
	}
	if c.backoff == nil {
		c.backoff = NewBackoff(2*time.Second, 30*time.Second)
	}
	c.logger = logging.NewComponentLogger(c.logger, "translate")
	return c
}

// Backoff returns the retry state used by the client.
func (c *Client) Backoff() *Backoff {
	return c.backoff
}

// Translate sends req and returns texts aligned one-to-one with req.Texts.
// Blank texts are never sent; they are returned unchanged. Transient failures
// are retried with backoff; validation and fatal failures return at once.
func (c *Client) Translate(ctx context.Context, req Request) (Response, error) {
	out := make([]string, len(req.Texts))
	copy(out, req.Texts)

	positions := make([]int, 0, len(req.Texts))
	payload := make([]string, 0, len(req.Texts))
	for i, text := range req.Texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		positions = append(positions, i)
		payload = append(payload, text)
	}
	if len(payload) == 0 {
		return Response{Texts: out}, nil
	}
	if c.completer == nil {
		return Response{}, services.Wrap(services.ErrConfiguration, "translate", "request", "no completer configured", nil)
	}

	systemPrompt := SystemPrompt(req.Source, req.Target)
	userPrompt := EncodeTexts(payload)
	logger := logging.WithContext(ctx, c.logger)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		translated, err := c.attempt(ctx, req.Model, systemPrompt, userPrompt, len(payload), attempt > 1)
		if err == nil {
			for i, pos := range positions {
				out[pos] = translated[i]
			}
			return Response{Texts: out, Attempts: attempt}, nil
		}
		lastErr = err

		switch services.Classify(err) {
		case services.KindCanceled, services.KindFatal, services.KindValidation, services.KindParse:
			return Response{Attempts: attempt}, err
		}
		if attempt == c.attempts {
			break
		}

		delay := c.backoff.Delay(attempt)
		var hinted retryAfterHinter
		if errors.As(err, &hinted) && hinted.RetryAfterDelay() > 0 {
			c.backoff.Pause(hinted.RetryAfterDelay())
			delay = 0
		}
		logger.Debug("retrying translation request",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.attempts),
			logging.Duration("delay", delay),
			logging.Bool("paused", c.backoff.Paused()),
			logging.Error(err),
		)
		if err := c.sleeper(ctx, delay); err != nil {
			return Response{Attempts: attempt}, err
		}
	}

	return Response{Attempts: c.attempts}, services.Wrap(services.ErrTransient, "translate", "request",
		fmt.Sprintf("failed after %d attempts", c.attempts), lastErr)
}

func (c *Client) attempt(ctx context.Context, model, systemPrompt, userPrompt string, want int, retry bool) ([]string, error) {
	if err := c.backoff.Wait(ctx); err != nil {
		return nil, err
	}
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	c.backoff.recordAttempt(retry)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	content, err := c.completer.Complete(ctx, model, systemPrompt, userPrompt)
	release()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, err
	}
	return DecodeTexts(content, want)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
