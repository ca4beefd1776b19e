package searchllama

import (
	"io"
	"log/slog"

	"github.com/woutermans/searchllama/embedding"
	"github.com/woutermans/searchllama/fetch"
	"github.com/woutermans/searchllama/generation"
	"github.com/woutermans/searchllama/internal/config"
	"github.com/woutermans/searchllama/orchestrator"
	"github.com/woutermans/searchllama/websearch"
)

// appConfig is the resolved set of choices New builds an App from. cfgOpts
// forward to config.AppConfig; the remaining fields override a component
// New would otherwise construct itself, which is how tests substitute
// fakes for the embedding/generation/search/browser layers.
type appConfig struct {
	cfgOpts []config.AppConfigOption

	logger *slog.Logger

	embeddingProvider embedding.Provider
	generationProvider generation.Provider
	searchClient       websearch.Client
	browserDriver      fetch.BrowserDriver
	explain            orchestrator.ExplanationPolicy

	closers []io.Closer
}

// Option configures an App at construction time.
type Option func(*appConfig)

// WithHost sets the server host to bind to.
func WithHost(host string) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithHost(host)) }
}

// WithPort sets the server port to listen on.
func WithPort(port int) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithPort(port)) }
}

// WithDataDir sets the data directory the SQLite index and state live under.
func WithDataDir(dir string) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithDataDir(dir)) }
}

// WithCacheDir sets the disk-cache root directory explicitly.
func WithCacheDir(dir string) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithCacheDir(dir)) }
}

// WithLogLevel sets the log level ("DEBUG", "INFO", "WARN", "ERROR").
func WithLogLevel(level string) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithLogLevel(level)) }
}

// WithLogFormat sets the log output format.
func WithLogFormat(format config.LogFormat) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithLogFormat(format)) }
}

// WithEmbeddingEndpoint configures the embedding model endpoint.
func WithEmbeddingEndpoint(e config.Endpoint) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithEmbeddingEndpointConfig(e)) }
}

// WithGenerationEndpoint configures the generative model endpoint.
func WithGenerationEndpoint(e config.Endpoint) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithGenerationEndpointConfig(e)) }
}

// WithSearchBaseURL sets the web-search provider's base URL.
func WithSearchBaseURL(url string) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithSearchBaseURL(url)) }
}

// WithFetchChunkSize sets the chunk size used when embedding fetched pages.
func WithFetchChunkSize(n int) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithFetchChunkSize(n)) }
}

// WithHeadless sets whether the browser driver runs headless.
func WithHeadless(headless bool) Option {
	return func(c *appConfig) { c.cfgOpts = append(c.cfgOpts, config.WithHeadless(headless)) }
}

// WithLogger overrides the logger New would otherwise build from config.
func WithLogger(logger *slog.Logger) Option {
	return func(c *appConfig) { c.logger = logger }
}

// WithEmbeddingProvider overrides the embedding provider New would otherwise
// select from the embedding endpoint's config.Provider.
func WithEmbeddingProvider(p embedding.Provider) Option {
	return func(c *appConfig) { c.embeddingProvider = p }
}

// WithGenerationProvider overrides the generative provider New would
// otherwise select from the generation endpoint's config.Provider.
func WithGenerationProvider(p generation.Provider) Option {
	return func(c *appConfig) { c.generationProvider = p }
}

// WithSearchClient overrides the web-search client New would otherwise
// build against config.AppConfig.SearchBaseURL.
func WithSearchClient(client websearch.Client) Option {
	return func(c *appConfig) { c.searchClient = client }
}

// WithBrowserDriver overrides the browser driver New would otherwise build
// (a ChromeDP driver respecting config.AppConfig.Headless).
func WithBrowserDriver(driver fetch.BrowserDriver) Option {
	return func(c *appConfig) { c.browserDriver = driver }
}

// WithExplanationPolicy overrides the orchestrator's ExplanationPolicy,
// which defaults to orchestrator.AlwaysExplain.
func WithExplanationPolicy(policy orchestrator.ExplanationPolicy) Option {
	return func(c *appConfig) { c.explain = policy }
}

// WithCloser registers an additional io.Closer to be closed, after the
// index database, when App.Close runs.
func WithCloser(closer io.Closer) Option {
	return func(c *appConfig) { c.closers = append(c.closers, closer) }
}
