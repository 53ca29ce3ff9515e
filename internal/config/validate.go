package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subtrans/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateMux(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	if t.SourceLanguage == "" {
		return errors.New("translation.source_language must be set")
	}
	if t.TargetLanguage == "" {
		return errors.New("translation.target_language must be set")
	}
	if language.Same(t.SourceLanguage, t.TargetLanguage) {
		return fmt.Errorf("translation.source_language and translation.target_language are both %q", t.SourceLanguage)
	}
	positive := []struct {
		name  string
		value int
	}{
		{"translation.max_chunk_entries", t.MaxChunkEntries},
		{"translation.file_concurrency", t.FileConcurrency},
		{"translation.chunk_concurrency", t.ChunkConcurrency},
		{"translation.max_in_flight", t.MaxInFlight},
		{"translation.retry_attempts", t.RetryAttempts},
	}
	for _, field := range positive {
		if field.value <= 0 {
			return fmt.Errorf("%s must be positive", field.name)
		}
	}
	if t.RetryBaseDelayMS < 0 {
		return errors.New("translation.retry_base_delay_ms must be >= 0")
	}
	if t.RetryMaxDelayMS < t.RetryBaseDelayMS {
		return errors.New("translation.retry_max_delay_ms must be >= translation.retry_base_delay_ms")
	}
	if t.Temperature < 0 || t.Temperature > 2 {
		return errors.New("translation.temperature must be between 0 and 2")
	}
	if strings.ContainsAny(t.OutputSuffix, `/\`) {
		return errors.New("translation.output_suffix must not contain path separators")
	}
	return nil
}

// validatePaths refuses layouts where translations would replace their
// sources: same directory and no output suffix, with local output.
func (c *Config) validatePaths() error {
	if c.Storage.Enabled() || c.Translation.OutputSuffix != "" {
		return nil
	}
	if sameDir(c.Paths.InputDir, c.Paths.OutputDir) {
		return fmt.Errorf("paths.output_dir %q is the input directory; set translation.output_suffix or choose another output_dir", c.Paths.OutputDir)
	}
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

func (c *Config) validateLLM() error {
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateMux() error {
	if strings.ContainsAny(c.Mux.OutputSuffix, `/\`) {
		return errors.New("mux.output_suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validateStorage() error {
	s := c.Storage
	if !s.Enabled() {
		return nil
	}
	switch {
	case s.Endpoint == "":
		return errors.New("storage.endpoint is required when storage.bucket is set")
	case strings.Contains(s.Endpoint, "://"):
		return fmt.Errorf("storage.endpoint must be host[:port] without a scheme, got %q", s.Endpoint)
	case s.AccessKey == "" || s.SecretKey == "":
		return fmt.Errorf("storage.access_key and storage.secret_key are required (or set %s and %s)",
			storageAccessKeyEnv, storageSecretKeyEnv)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
