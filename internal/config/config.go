package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input, output and state directories.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Translation contains the pipeline parameters.
type Translation struct {
	SourceLanguage   string  `toml:"source_language"`
	TargetLanguage   string  `toml:"target_language"`
	Model            string  `toml:"model"`
	MaxChunkEntries  int     `toml:"max_chunk_entries"`
	MaxChunkChars    int     `toml:"max_chunk_chars"`
	FileConcurrency  int     `toml:"file_concurrency"`
	ChunkConcurrency int     `toml:"chunk_concurrency"`
	MaxInFlight      int     `toml:"max_in_flight"`
	RetryAttempts    int     `toml:"retry_attempts"`
	RetryBaseDelayMS int     `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int     `toml:"retry_max_delay_ms"`
	Strict           bool    `toml:"strict"`
	StrictParsing    bool    `toml:"strict_parsing"`
	DropEmptyCues    bool    `toml:"drop_empty_cues"`
	OutputSuffix     string  `toml:"output_suffix"`
	Temperature      float64 `toml:"temperature"`
}

// LLM contains the connection settings for the remote translation service.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// History controls the run journal.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Mux contains settings for merging subtitles into video containers.
type Mux struct {
	Language     string `toml:"language"`
	Charset      string `toml:"charset"`
	OutputSuffix string `toml:"output_suffix"`
}

// Storage sends translated outputs to an S3-compatible bucket instead of
// paths.output_dir. It is disabled while Bucket is empty.
type Storage struct {
	Endpoint     string `toml:"endpoint"`
	Bucket       string `toml:"bucket"`
	Prefix       string `toml:"prefix"`
	Region       string `toml:"region"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UseSSL       bool   `toml:"use_ssl"`
	CreateBucket bool   `toml:"create_bucket"`
}

// Enabled reports whether outputs go to object storage.
func (s Storage) Enabled() bool {
	return s.Bucket != ""
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subtrans.
//
// Configuration sections by subsystem:
//   - Paths: input/output directories, logs, and state (history database)
//   - Translation: languages, model, chunk limits, concurrency, retry policy
//   - LLM: remote service credential and endpoint
//   - History: run journal toggle
//   - Mux: mkvmerge language and charset settings
//   - Storage: optional S3-compatible output bucket
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Translation Translation `toml:"translation"`
	LLM         LLM         `toml:"llm"`
	History     History     `toml:"history"`
	Mux         Mux         `toml:"mux"`
	Storage     Storage     `toml:"storage"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strictErr *toml.StrictMissingError
			if errors.As(err, &strictErr) {
				return nil, "", false, fmt.Errorf("parse config: %s", strings.TrimSpace(strictErr.String()))
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the run journal database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// MkvmergeBinary returns the mkvmerge executable name.
func (c *Config) MkvmergeBinary() string {
	return "mkvmerge"
}

// RetryBaseDelay returns the first backoff delay.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Translation.RetryBaseDelayMS) * time.Millisecond
}

// RetryMaxDelay returns the backoff cap.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Translation.RetryMaxDelayMS) * time.Millisecond
}

// RequireAPIKey reports a configuration error when no credential is set.
// Only commands that call the remote service need one.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required. Set %s env var or edit %s (create with 'subtrans config init')",
		strings.Join(apiKeyEnvVars, ", "), defaultPath)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "subtrans")
	}
	return "~/.local/state/subtrans"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
