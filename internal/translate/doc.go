// Package translate owns the translation boundary: it encodes a batch of cue
// texts with a numbered-line protocol, sends it through a Completer, validates
// that the reply maps one-to-one onto the request, and retries transient
// failures with jittered exponential backoff.
//
// Failure classes follow internal/services: transient errors are retried up
// to the configured attempt count, protocol mismatches surface as
// ProtocolError (services.ErrValidation) without retry, and fatal errors are
// returned immediately so the caller can abort the run.
//
// Backoff and Limiter are shared by every Client invocation in a run. A
// Retry-After hint from one chunk pauses all others until it elapses.
package translate
