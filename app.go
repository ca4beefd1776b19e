// Package searchllama wires together the search pipeline: a web-search
// provider, a headless-browser page fetcher, an embedding service, a
// SQLite-backed vector index, and an orchestrator that streams ranked
// results and an optional generated summary back to the caller.
package searchllama

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/chromedp/chromedp"
	"github.com/go-chi/chi/v5"
	"github.com/sashabaranov/go-openai"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/woutermans/searchllama/chatrelay"
	"github.com/woutermans/searchllama/diskcache"
	"github.com/woutermans/searchllama/embedding"
	"github.com/woutermans/searchllama/fetch"
	"github.com/woutermans/searchllama/generation"
	"github.com/woutermans/searchllama/index"
	"github.com/woutermans/searchllama/infrastructure/api"
	"github.com/woutermans/searchllama/internal/config"
	applog "github.com/woutermans/searchllama/internal/log"
	"github.com/woutermans/searchllama/orchestrator"
	"github.com/woutermans/searchllama/websearch"
)

// App is a constructed search pipeline, ready to serve queries either
// in-process (via Search/Chat) or over HTTP (via Serve).
type App struct {
	cfg    config.AppConfig
	logger *slog.Logger

	db      *gorm.DB
	engine  *orchestrator.Engine
	relay   *chatrelay.Relay

	closers []closerFunc
	closed  atomic.Bool
}

type closerFunc func() error

// New builds an App from opts. Any component left unspecified by an
// override option is constructed from the resolved config.AppConfig.
func New(opts ...Option) (*App, error) {
	ac := appConfig{}
	for _, opt := range opts {
		opt(&ac)
	}

	cfg := config.NewAppConfigWithOptions(ac.cfgOpts...)

	logger := ac.logger
	if logger == nil {
		logger = applog.NewLogger(cfg).Slog()
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("searchllama: %w", err)
	}
	if err := cfg.EnsureCacheDir(); err != nil {
		return nil, fmt.Errorf("searchllama: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("searchllama: open index database: %w", err)
	}

	idx, err := index.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("searchllama: open index store: %w", err)
	}

	cache, err := diskcache.NewFSCache(cfg.CacheDir())
	if err != nil {
		return nil, fmt.Errorf("searchllama: open disk cache: %w", err)
	}

	embedProvider := ac.embeddingProvider
	if embedProvider == nil {
		embedProvider = newEmbeddingProvider(cfg.EmbeddingEndpoint())
	}
	embeds, err := embedding.NewService(embedProvider, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("searchllama: create embedding service: %w", err)
	}

	driver := ac.browserDriver
	if driver == nil {
		driver = newBrowserDriver(cfg.Headless())
	}
	fetcher := fetch.NewFetcher(driver, embeds, cache, cfg.FetchChunkSize(), logger)

	searchClient := ac.searchClient
	if searchClient == nil {
		searchClient = websearch.NewCachedClient(websearch.NewHTTPClient(cfg.SearchBaseURL()), cache)
	}

	genProvider := ac.generationProvider
	if genProvider == nil {
		genProvider = newGenerationProvider(cfg.GenerationEndpoint())
	}

	engine := orchestrator.NewEngine(idx, embeds, fetcher, searchClient, genProvider, ac.explain, logger)
	relay := chatrelay.NewRelay(genProvider, logger)

	closers := make([]closerFunc, 0, len(ac.closers)+1)
	closers = append(closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	for _, c := range ac.closers {
		closers = append(closers, c.Close)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		engine:  engine,
		relay:   relay,
		closers: closers,
	}, nil
}

// newEmbeddingProvider selects a Provider implementation from e.Provider.
func newEmbeddingProvider(e config.Endpoint) embedding.Provider {
	switch e.Provider() {
	case config.ProviderOpenAI:
		return embedding.NewOpenAIProvider(e.APIKey(), e.BaseURL(), openai.EmbeddingModel(e.Model()))
	default:
		return embedding.NewOllamaProvider(e.BaseURL(), e.Model())
	}
}

// newGenerationProvider selects a Provider implementation from e.Provider.
func newGenerationProvider(e config.Endpoint) generation.Provider {
	switch e.Provider() {
	case config.ProviderOpenAI:
		return generation.NewOpenAIProvider(e.APIKey(), e.BaseURL(), e.Model())
	default:
		return generation.NewOllamaProvider(e.BaseURL(), e.Model())
	}
}

// newBrowserDriver builds a ChromeDP driver, appending the flag that
// disables headless mode when headless is false.
func newBrowserDriver(headless bool) *fetch.ChromedpDriver {
	if headless {
		return fetch.NewChromedpDriver()
	}
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", false))
	return fetch.NewChromedpDriver(opts...)
}

// Logger returns the App's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Search runs the search pipeline for query, returning a channel of
// orchestrator.Messages. See orchestrator.Engine.Search.
func (a *App) Search(ctx context.Context, query string) (<-chan orchestrator.Message, error) {
	return a.engine.Search(ctx, query)
}

// Chat relays message through the generative model, optionally resuming
// priorContext. See chatrelay.Relay.Chat.
func (a *App) Chat(ctx context.Context, message string, priorContext []int64) <-chan chatrelay.Fragment {
	return a.relay.Chat(ctx, message, priorContext)
}

var _ api.Searcher = (*App)(nil)
var _ api.Chatter = (*App)(nil)

// Serve starts an HTTP server exposing /search and /chat, blocking until
// ctx is canceled or the server fails. When ctx is canceled it shuts the
// server down gracefully; when the server fails to start or stops with an
// error, that error is returned without a shutdown call.
func (a *App) Serve(ctx context.Context) error {
	handlers := api.NewHandlers(a, a, a.logger)
	server := api.NewServer(a.cfg.Addr(), a.logger, func(r chi.Router) { handlers.Mount(r) })

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	}
}

// Close releases the App's database connection and any registered closers.
// Close is idempotent; subsequent calls are no-ops.
func (a *App) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
