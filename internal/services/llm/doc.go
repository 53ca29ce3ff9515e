// Package llm provides an OpenAI-compatible chat completion client used as the
// remote translation capability.
//
// The client performs exactly one HTTP attempt per call. Retry, backoff and
// response validation belong to the caller (see internal/translate); this
// package only classifies failures so the caller can decide:
//
//   - missing credentials and HTTP 401/403/404 are tagged services.ErrFatal
//   - HTTP 400/413/422 are tagged services.ErrValidation
//   - HTTP 408/409/425/429/5xx, network errors, undecodable bodies and empty
//     completions are tagged services.ErrTransient
//
// StatusError exposes the Retry-After hint returned by the server.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive the raw completion text.
// Client.HealthCheck: verify API key and model availability.
package llm
