package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	searchllama "github.com/woutermans/searchllama"
	"github.com/woutermans/searchllama/internal/config"
	"github.com/woutermans/searchllama/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP search server",
		Long: `Start the HTTP search server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 3030)
  DATA_DIR                     Data directory holding data.db (default: ~/.searchllama)
  CACHE_DIR                    Disk-cache root (default: {DATA_DIR}/cache)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)

  EMBEDDING_PROVIDER           ollama or openai (default: ollama)
  EMBEDDING_BASE_URL           Embedding endpoint base URL
  EMBEDDING_MODEL              Embedding model identifier
  EMBEDDING_API_KEY            Embedding endpoint API key (openai only)

  GENERATION_PROVIDER          ollama or openai (default: ollama)
  GENERATION_BASE_URL          Generative endpoint base URL
  GENERATION_MODEL             Generative model identifier
  GENERATION_API_KEY           Generative endpoint API key (openai only)

  SEARCH_BASE_URL              Web-search provider base URL (SearXNG-shaped JSON API)
  FETCH_CHUNK_SIZE             Chunk size used when embedding fetched pages
  HEADLESS                     Run the browser driver headless (default: true)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 3030)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting searchllama", attrs...)

	app, err := searchllama.New(
		searchllama.WithHost(cfg.Host()),
		searchllama.WithPort(cfg.Port()),
		searchllama.WithDataDir(cfg.DataDir()),
		searchllama.WithCacheDir(cfg.CacheDir()),
		searchllama.WithLogLevel(cfg.LogLevel()),
		searchllama.WithLogFormat(cfg.LogFormat()),
		searchllama.WithEmbeddingEndpoint(cfg.EmbeddingEndpoint()),
		searchllama.WithGenerationEndpoint(cfg.GenerationEndpoint()),
		searchllama.WithSearchBaseURL(cfg.SearchBaseURL()),
		searchllama.WithFetchChunkSize(cfg.FetchChunkSize()),
		searchllama.WithHeadless(cfg.Headless()),
		searchllama.WithLogger(slogger),
	)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slogger.Error("failed to close app", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
	}()

	slogger.Info("starting server", slog.String("addr", cfg.Addr()))
	if err := app.Serve(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// applyServeOverrides applies command line flag overrides to cfg.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
