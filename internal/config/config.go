// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 3030
	DefaultLogLevel           = "INFO"
	DefaultEmbeddingModel     = "nomic-embed-text:latest"
	DefaultGenerationModel    = "llama3.1:latest"
	DefaultOllamaBaseURL      = "http://localhost:11434"
	DefaultSearchBaseURL      = "http://localhost:8080"
	DefaultEndpointTimeout    = 60 * time.Second
	DefaultFetchChunkSize     = 2000
	DefaultHeadless           = true
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Provider selects which concrete implementation backs a model endpoint.
type Provider string

// Provider values.
const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// Endpoint configures a model service (embedding or generative).
type Endpoint struct {
	provider Provider
	baseURL  string
	model    string
	apiKey   string
	timeout  time.Duration
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		provider: ProviderOllama,
		timeout:  DefaultEndpointTimeout,
	}
}

// Provider returns which backend implementation to construct.
func (e Endpoint) Provider() Provider { return e.provider }

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithProvider sets the backend provider.
func WithProvider(p Provider) EndpointOption {
	return func(e *Endpoint) { e.provider = p }
}

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host              string
	port              int
	dataDir           string
	cacheDir          string
	logLevel          string
	logFormat         LogFormat
	embeddingEndpoint Endpoint
	generationEndpoint Endpoint
	searchBaseURL     string
	fetchChunkSize    int
	headless          bool
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".searchllama"
	}
	return filepath.Join(home, ".searchllama")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:      DefaultHost,
		port:      DefaultPort,
		dataDir:   dataDir,
		cacheDir:  filepath.Join(dataDir, "cache"),
		logLevel:  DefaultLogLevel,
		logFormat: LogFormatPretty,
		embeddingEndpoint: NewEndpointWithOptions(
			WithProvider(ProviderOllama),
			WithBaseURL(DefaultOllamaBaseURL),
			WithModel(DefaultEmbeddingModel),
		),
		generationEndpoint: NewEndpointWithOptions(
			WithProvider(ProviderOllama),
			WithBaseURL(DefaultOllamaBaseURL),
			WithModel(DefaultGenerationModel),
		),
		searchBaseURL:  DefaultSearchBaseURL,
		fetchChunkSize: DefaultFetchChunkSize,
		headless:       DefaultHeadless,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBPath returns the path to the SQLite index file (spec §6: "data.db").
func (c AppConfig) DBPath() string {
	return filepath.Join(c.dataDir, "data.db")
}

// CacheDir returns the disk-cache root directory.
func (c AppConfig) CacheDir() string { return c.cacheDir }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// EmbeddingEndpoint returns the embedding endpoint config.
func (c AppConfig) EmbeddingEndpoint() Endpoint { return c.embeddingEndpoint }

// GenerationEndpoint returns the generative model endpoint config.
func (c AppConfig) GenerationEndpoint() Endpoint { return c.generationEndpoint }

// SearchBaseURL returns the web-search provider's base URL.
func (c AppConfig) SearchBaseURL() string { return c.searchBaseURL }

// FetchChunkSize returns the chunk size used when embedding fetched pages.
func (c AppConfig) FetchChunkSize() int { return c.fetchChunkSize }

// Headless returns whether the browser driver should run headless.
func (c AppConfig) Headless() bool { return c.headless }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func (c AppConfig) EnsureCacheDir() error {
	return os.MkdirAll(c.cacheDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory. If the cache dir has not been
// overridden from its default, it moves along with it.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		if c.cacheDir == "" || c.cacheDir == filepath.Join(c.dataDir, "cache") {
			c.cacheDir = filepath.Join(dir, "cache")
		}
		c.dataDir = dir
	}
}

// WithCacheDir sets the disk-cache root directory explicitly.
func WithCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.cacheDir = dir }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithEmbeddingEndpointConfig sets the embedding endpoint.
func WithEmbeddingEndpointConfig(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = e }
}

// WithGenerationEndpointConfig sets the generative model endpoint.
func WithGenerationEndpointConfig(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.generationEndpoint = e }
}

// WithSearchBaseURL sets the web-search provider's base URL.
func WithSearchBaseURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.searchBaseURL = url }
}

// WithFetchChunkSize sets the chunk size used when embedding fetched pages.
func WithFetchChunkSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.fetchChunkSize = n
		}
	}
}

// WithHeadless sets whether the browser driver runs headless.
func WithHeadless(headless bool) AppConfigOption {
	return func(c *AppConfig) { c.headless = headless }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration. Secrets
// are never logged.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("addr", c.Addr()),
		slog.String("data_dir", c.dataDir),
		slog.String("cache_dir", c.cacheDir),
		slog.String("log_level", c.logLevel),
		slog.String("embedding_provider", string(c.embeddingEndpoint.Provider())),
		slog.String("embedding_model", c.embeddingEndpoint.Model()),
		slog.String("generation_provider", string(c.generationEndpoint.Provider())),
		slog.String("generation_model", c.generationEndpoint.Model()),
		slog.String("search_base_url", c.searchBaseURL),
		slog.Bool("headless", c.headless),
	}
}
