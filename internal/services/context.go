package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	fileKey      contextKey = "file"
	chunkKey     contextKey = "chunk"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the translation run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFile annotates context with the subtitle file being processed.
func WithFile(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, fileKey, name)
}

// FileFromContext returns the file name if present.
func FileFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(fileKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChunk annotates context with the 1-based chunk number within a file.
func WithChunk(ctx context.Context, number int) context.Context {
	return context.WithValue(ctx, chunkKey, number)
}

// ChunkFromContext extracts the chunk number if present.
func ChunkFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(chunkKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
