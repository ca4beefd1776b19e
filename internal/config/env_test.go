package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 3030, cfg.Port)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, 2000, cfg.FetchChunkSize)
	assert.True(t, cfg.Headless)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultFetchChunkSize, cfg.FetchChunkSize)
	assert.Equal(t, DefaultEndpointTimeout.Seconds(), cfg.Embedding.Timeout)
}

func TestLoadFromEnv_OverrideValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_DIR", "/custom/data")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromEnv_EmbeddingEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("EMBEDDING_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_API_KEY", "sk-test-key")
	t.Setenv("EMBEDDING_TIMEOUT", "120")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Embedding.IsConfigured())
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "sk-test-key", cfg.Embedding.APIKey)
	assert.Equal(t, 120.0, cfg.Embedding.Timeout)
}

func TestLoadFromEnv_GenerationEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("GENERATION_BASE_URL", "http://localhost:11434")
	t.Setenv("GENERATION_MODEL", "llama3.1:latest")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Generation.IsConfigured())
	assert.Equal(t, "http://localhost:11434", cfg.Generation.BaseURL)
	assert.Equal(t, "llama3.1:latest", cfg.Generation.Model)
}

func TestLoadFromEnv_SearchAndFetch(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("SEARCH_BASE_URL", "http://searx.local")
	t.Setenv("FETCH_CHUNK_SIZE", "4096")
	t.Setenv("HEADLESS", "false")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://searx.local", cfg.SearchBaseURL)
	assert.Equal(t, 4096, cfg.FetchChunkSize)
	assert.False(t, cfg.Headless)
}

func TestEnvConfig_ToAppConfig(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("DATA_DIR", "/test/data")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EMBEDDING_MODEL", "text-embedding-3-small")
	t.Setenv("GENERATION_MODEL", "gpt-4")
	t.Setenv("SEARCH_BASE_URL", "http://searx.local")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg := envCfg.ToAppConfig()

	assert.Equal(t, "/test/data", cfg.DataDir())
	assert.Equal(t, "DEBUG", cfg.LogLevel())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint().Model())
	assert.Equal(t, "gpt-4", cfg.GenerationEndpoint().Model())
	assert.Equal(t, "http://searx.local", cfg.SearchBaseURL())
}

func TestEndpointEnv_ToEndpoint(t *testing.T) {
	env := EndpointEnv{
		Provider: "openai",
		BaseURL:  "https://api.example.com",
		Model:    "test-model",
		APIKey:   "test-key",
		Timeout:  120,
	}

	endpoint := env.ToEndpoint(NewEndpoint())

	assert.Equal(t, ProviderOpenAI, endpoint.Provider())
	assert.Equal(t, "https://api.example.com", endpoint.BaseURL())
	assert.Equal(t, "test-model", endpoint.Model())
	assert.Equal(t, "test-key", endpoint.APIKey())
	assert.Equal(t, 120*time.Second, endpoint.Timeout())
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected LogFormat
	}{
		{"json", LogFormatJSON},
		{"JSON", LogFormatJSON},
		{"pretty", LogFormatPretty},
		{"PRETTY", LogFormatPretty},
		{"", LogFormatPretty},
		{"invalid", LogFormatPretty},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLogFormat(tc.input))
		})
	}
}

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderOpenAI, parseProvider("openai"))
	assert.Equal(t, ProviderOpenAI, parseProvider("OpenAI"))
	assert.Equal(t, ProviderOllama, parseProvider("ollama"))
	assert.Equal(t, ProviderOllama, parseProvider("unknown"))
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/from/dotenv
LOG_LEVEL=DEBUG
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	err = LoadDotEnv(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv", os.Getenv("DATA_DIR"))
	assert.Equal(t, "DEBUG", os.Getenv("LOG_LEVEL"))
}

func TestLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)

	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestMustLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)

	err := MustLoadDotEnv("/nonexistent/.env")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/config/data
LOG_LEVEL=WARN
EMBEDDING_MODEL=test-embedding
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/config/data", cfg.DataDir())
	assert.Equal(t, "WARN", cfg.LogLevel())
	assert.Equal(t, "test-embedding", cfg.EmbeddingEndpoint().Model())
}

func TestLoadDotEnvFromFiles(t *testing.T) {
	tmpDir := t.TempDir()

	env1 := filepath.Join(tmpDir, ".env")
	err := os.WriteFile(env1, []byte("KEY1=value1\nKEY2=value2\n"), 0o644)
	require.NoError(t, err)

	env2 := filepath.Join(tmpDir, ".env.local")
	err = os.WriteFile(env2, []byte("KEY2=override\nKEY3=value3\n"), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	err = LoadDotEnvFromFiles(env1, env2)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "value2", os.Getenv("KEY2"))
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

func TestOverloadDotEnvFromFiles(t *testing.T) {
	tmpDir := t.TempDir()

	env1 := filepath.Join(tmpDir, ".env")
	err := os.WriteFile(env1, []byte("KEY1=value1\nKEY2=value2\n"), 0o644)
	require.NoError(t, err)

	env2 := filepath.Join(tmpDir, ".env.local")
	err = os.WriteFile(env2, []byte("KEY2=override\nKEY3=value3\n"), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	err = OverloadDotEnvFromFiles(env1, env2)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "override", os.Getenv("KEY2"))
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"HOST", "PORT", "DATA_DIR", "CACHE_DIR", "LOG_LEVEL", "LOG_FORMAT",
		"EMBEDDING_PROVIDER", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_API_KEY", "EMBEDDING_TIMEOUT",
		"GENERATION_PROVIDER", "GENERATION_BASE_URL", "GENERATION_MODEL", "GENERATION_API_KEY", "GENERATION_TIMEOUT",
		"SEARCH_BASE_URL", "FETCH_CHUNK_SIZE", "HEADLESS",
		"KEY1", "KEY2", "KEY3",
	}

	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}
