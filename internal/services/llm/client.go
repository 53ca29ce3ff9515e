package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subtrans/internal/services"
)

const (
	// DefaultBaseURL is the OpenAI chat completions endpoint.
	DefaultBaseURL = "https://api.openai.com/v1/chat/completions"

	defaultTimeout = 120 * time.Second
	healthPrompt   = `Respond with {"ok":true}`
)

// Config captures the runtime settings required to talk to the remote service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Temperature    float64
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	cfg     Config
	timeout time.Duration
	http    *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient swaps the transport, typically for httptest servers.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient constructs a client. Blank base URLs fall back to DefaultBaseURL.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{cfg: cfg, timeout: timeout, http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete issues one chat completion request and returns the raw content
// produced by the model. An empty model falls back to the configured one.
func (c *Client) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	if strings.TrimSpace(userPrompt) == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "user prompt required", nil)
	}
	if model = strings.TrimSpace(model); model == "" {
		model = c.cfg.Model
	}
	return c.content(ctx, "llm complete", chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(systemPrompt)},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
	})
}

// HealthCheck sends a tiny JSON-mode prompt to prove the key and model work.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "llm", "health", "api key required", nil)
	}
	content, err := c.content(ctx, "llm health", chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: healthPrompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return err
	}
	var reply struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &reply); err != nil {
		return fmt.Errorf("llm health: parse reply %s: %w", snippet(content), err)
	}
	if !reply.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

// content runs one request and extracts the first non-empty choice.
func (c *Client) content(ctx context.Context, op string, payload chatCompletionRequest) (string, error) {
	completion, raw, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, "llm", op, "empty choices", nil)
	}
	if text := completion.text(); text != "" {
		return text, nil
	}
	return "", &emptyContentError{
		op:           op,
		finishReason: completion.finishReason(),
		refusal:      completion.refusal(),
		body:         snippet(string(raw)),
	}
}

func (c *Client) post(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse

	body, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, services.Wrap(services.ErrFatal, "llm", "request", "encode body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return completion, nil, services.Wrap(services.ErrConfiguration, "llm", "request", "invalid base url", err)
	}
	c.setHeaders(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return completion, nil, c.transportError(ctx, "send", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, c.transportError(ctx, "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return completion, raw, newStatusError(resp, raw)
	}
	if err := json.Unmarshal(raw, &completion); err != nil {
		return completion, raw, services.Wrap(services.ErrTransient, "llm", "request",
			"decode response: "+snippet(string(raw)), err)
	}
	if completion.Error != nil {
		return completion, raw, services.Wrap(services.ErrTransient, "llm", "request",
			"api error: "+strings.TrimSpace(completion.Error.Message), nil)
	}
	return completion, raw, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}
	// OpenRouter attribution headers; ignored by other providers.
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
}

// transportError keeps cancellation distinguishable from network failures.
// Only the caller's context counts as cancellation. The transport cause is
// flattened to text: http.Client timeouts match context.DeadlineExceeded.
func (c *Client) transportError(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("llm request: %w", ctxErr)
	}
	return services.Wrap(services.ErrTransient, "llm", "request",
		fmt.Sprintf("%s (timeout=%s): %v", step, c.timeout, err), nil)
}
