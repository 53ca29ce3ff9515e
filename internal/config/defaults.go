package config

const (
	defaultConfigPath       = "~/.config/subtrans/config.toml"
	projectConfigName       = "subtrans.toml"
	defaultInputDir         = "."
	defaultOutputDir        = "output"
	defaultLogDir           = "~/.local/share/subtrans/logs"
	defaultSourceLanguage   = "English"
	defaultTargetLanguage   = "Romanian"
	defaultModel            = "gpt-4o-mini"
	defaultMaxChunkEntries  = 50
	defaultMaxChunkChars    = 6000
	defaultFileConcurrency  = 4
	defaultChunkConcurrency = 4
	defaultMaxInFlight      = 8
	defaultRetryAttempts    = 3
	defaultRetryBaseDelayMS = 2000
	defaultRetryMaxDelayMS  = 30000
	defaultTemperature      = 0.2
	defaultLLMBaseURL       = "https://api.openai.com/v1/chat/completions"
	defaultLLMReferer       = "https://github.com/subtrans/subtrans"
	defaultLLMTitle         = "subtrans"
	defaultLLMTimeout       = 120
	defaultMuxLanguage      = "ro"
	defaultMuxCharset       = "UTF-8"
	defaultMuxOutputSuffix  = "-merged"
	defaultStorageRegion    = "us-east-1"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Object storage credentials fall back to these when the file leaves them empty.
const (
	storageAccessKeyEnv = "SUBTRANS_STORAGE_ACCESS_KEY"
	storageSecretKeyEnv = "SUBTRANS_STORAGE_SECRET_KEY"
)

// apiKeyEnvVars are consulted in order when llm.api_key is empty.
var apiKeyEnvVars = []string{"SUBTRANS_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir(),
		},
		Translation: Translation{
			SourceLanguage:   defaultSourceLanguage,
			TargetLanguage:   defaultTargetLanguage,
			Model:            defaultModel,
			MaxChunkEntries:  defaultMaxChunkEntries,
			MaxChunkChars:    defaultMaxChunkChars,
			FileConcurrency:  defaultFileConcurrency,
			ChunkConcurrency: defaultChunkConcurrency,
			MaxInFlight:      defaultMaxInFlight,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
			RetryMaxDelayMS:  defaultRetryMaxDelayMS,
			StrictParsing:    true,
			Temperature:      defaultTemperature,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		History: History{
			Enabled: true,
		},
		Mux: Mux{
			Language:     defaultMuxLanguage,
			Charset:      defaultMuxCharset,
			OutputSuffix: defaultMuxOutputSuffix,
		},
		Storage: Storage{
			Region: defaultStorageRegion,
			UseSSL: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
