package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.normalizeLLM()
	c.normalizeMux()
	c.normalizeStorage()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.input_dir", &c.Paths.InputDir, defaultInputDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir()},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	t := &c.Translation
	t.SourceLanguage = strings.TrimSpace(t.SourceLanguage)
	t.TargetLanguage = strings.TrimSpace(t.TargetLanguage)
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		t.Model = defaultModel
	}
	t.OutputSuffix = strings.TrimSpace(t.OutputSuffix)
	if t.MaxChunkChars < 0 {
		t.MaxChunkChars = 0
	}
	// The in-flight cap never needs to exceed what the workers can issue.
	if limit := t.FileConcurrency * t.ChunkConcurrency; limit > 0 && t.MaxInFlight > limit {
		t.MaxInFlight = limit
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, name := range apiKeyEnvVars {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeMux() {
	c.Mux.Language = strings.ToLower(strings.TrimSpace(c.Mux.Language))
	if c.Mux.Language == "" {
		c.Mux.Language = defaultMuxLanguage
	}
	c.Mux.Charset = strings.TrimSpace(c.Mux.Charset)
	if c.Mux.Charset == "" {
		c.Mux.Charset = defaultMuxCharset
	}
	c.Mux.OutputSuffix = strings.TrimSpace(c.Mux.OutputSuffix)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeStorage() {
	s := &c.Storage
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.Bucket = strings.TrimSpace(s.Bucket)
	s.Prefix = strings.Trim(strings.TrimSpace(s.Prefix), "/")
	s.Region = strings.TrimSpace(s.Region)
	if s.Region == "" {
		s.Region = defaultStorageRegion
	}
	s.AccessKey = envFallback(s.AccessKey, storageAccessKeyEnv)
	s.SecretKey = envFallback(s.SecretKey, storageSecretKeyEnv)
}

func envFallback(value, name string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(name))
}
