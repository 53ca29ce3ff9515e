// Package config loads, normalizes, and validates subtrans configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for the translation service
// credential (SUBTRANS_API_KEY, OPENAI_API_KEY, OPENROUTER_API_KEY). The
// Config type centralizes every knob the CLI and the pipeline need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
