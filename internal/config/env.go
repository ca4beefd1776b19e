// Package config provides application configuration.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration. Field names map
// directly to environment variables, no prefix (matching spec §6's bare
// HOST/PORT naming).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 3030)
	Port int `envconfig:"PORT" default:"3030"`

	// DataDir is the data directory path (holds data.db and, unless
	// overridden, the disk-cache root).
	// Env: DATA_DIR
	DataDir string `envconfig:"DATA_DIR"`

	// CacheDir overrides the disk-cache root independently of DataDir.
	// Env: CACHE_DIR
	CacheDir string `envconfig:"CACHE_DIR"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// Embedding configures the embedding model endpoint.
	Embedding EndpointEnv `envconfig:"EMBEDDING"`

	// Generation configures the generative model endpoint.
	Generation EndpointEnv `envconfig:"GENERATION"`

	// SearchBaseURL is the web-search provider's base URL.
	// Env: SEARCH_BASE_URL
	SearchBaseURL string `envconfig:"SEARCH_BASE_URL"`

	// FetchChunkSize is the chunk size used when embedding fetched pages.
	// Env: FETCH_CHUNK_SIZE (default: 2000)
	FetchChunkSize int `envconfig:"FETCH_CHUNK_SIZE" default:"2000"`

	// Headless controls whether the browser driver runs headless.
	// Env: HEADLESS (default: true)
	Headless bool `envconfig:"HEADLESS" default:"true"`
}

// EndpointEnv holds environment configuration for a model endpoint.
type EndpointEnv struct {
	// Provider selects the concrete backend ("ollama" or "openai").
	// Env: *_PROVIDER (default: ollama)
	Provider string `envconfig:"PROVIDER" default:"ollama"`

	// BaseURL is the base URL for the endpoint.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize trims whitespace from string fields set via the environment.
// A no-op for already-clean values; kept as the hook LoadConfig calls so
// config loading has one place to absorb future cleanup rules.
func (e EnvConfig) Normalize() EnvConfig {
	e.Host = strings.TrimSpace(e.Host)
	e.DataDir = strings.TrimSpace(e.DataDir)
	e.CacheDir = strings.TrimSpace(e.CacheDir)
	e.SearchBaseURL = strings.TrimSpace(e.SearchBaseURL)
	return e
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.CacheDir != "" {
		cfg = applyOption(cfg, WithCacheDir(e.CacheDir))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.Embedding.IsConfigured() {
		cfg = applyOption(cfg, WithEmbeddingEndpointConfig(e.Embedding.ToEndpoint(NewAppConfig().EmbeddingEndpoint())))
	}
	if e.Generation.IsConfigured() {
		cfg = applyOption(cfg, WithGenerationEndpointConfig(e.Generation.ToEndpoint(NewAppConfig().GenerationEndpoint())))
	}
	if e.SearchBaseURL != "" {
		cfg = applyOption(cfg, WithSearchBaseURL(e.SearchBaseURL))
	}
	if e.FetchChunkSize > 0 {
		cfg = applyOption(cfg, WithFetchChunkSize(e.FetchChunkSize))
	}
	cfg = applyOption(cfg, WithHeadless(e.Headless))

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// IsConfigured returns true if the endpoint has a model or base URL set, or
// a provider other than "ollama", distinguishing "use the default" from "the operator customized this."
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != "" || e.BaseURL != "" || e.Provider != "ollama"
}

// ToEndpoint converts EndpointEnv to Endpoint, falling back to fallback's
// values for anything left unset.
func (e EndpointEnv) ToEndpoint(fallback Endpoint) Endpoint {
	opts := []EndpointOption{
		WithProvider(fallback.Provider()),
		WithBaseURL(fallback.BaseURL()),
		WithModel(fallback.Model()),
		WithAPIKey(fallback.APIKey()),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
	}

	if e.Provider != "" {
		opts = append(opts, WithProvider(parseProvider(e.Provider)))
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}

	return NewEndpointWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

// parseProvider parses a provider string, defaulting to Ollama on anything
// unrecognized rather than failing startup over a typo.
func parseProvider(s string) Provider {
	switch strings.ToLower(s) {
	case "openai":
		return ProviderOpenAI
	default:
		return ProviderOllama
	}
}
