// Package services defines shared utilities consumed by the translation
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, file paths, and chunk numbers for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper and Classify function that
//     sort failures into the pipeline's error taxonomy (parse, transient,
//     validation, fatal, io).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across components.
package services
