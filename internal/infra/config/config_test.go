package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
summary:
  maxChunkChars: 4000
  chunkOverlap: 200
llm:
  provider: anthropic
  providers:
    anthropic:
      model: claude-3-5-haiku-latest
  retry:
    maxRetries: 5
`), 0o600))
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LLM_TIMEOUT", "90s")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SUMMARY_CONTINUE_ON_CHUNK_ERROR", "true")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.Summary.MaxChunkChars)
	require.Equal(t, 200, cfg.Summary.ChunkOverlap)
	require.Equal(t, 20000, cfg.Summary.MaxWords)
	require.True(t, cfg.Summary.ContinueOnChunkError)
	require.Equal(t, "anthropic", cfg.LLM.Provider)
	require.Equal(t, "claude-3-5-haiku-latest", cfg.LLM.Providers["anthropic"].Model)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Providers["openai"].Model)
	require.Equal(t, 5, cfg.LLM.Retry.MaxRetries)
	require.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty address", mutate: func(c *Config) { c.HTTP.Address = "" }, wantErr: "http.address cannot be empty"},
		{name: "overlap too large", mutate: func(c *Config) { c.Summary.ChunkOverlap = c.Summary.MaxChunkChars }, wantErr: "summary.chunkOverlap must be in [0, maxChunkChars)"},
		{name: "unbounded combine budget", mutate: func(c *Config) { c.Summary.MaxCombineChars = 0 }, wantErr: "summary.maxCombineChars must be positive"},
		{name: "context window unset", mutate: func(c *Config) { c.LLM.ContextWindowTokens = 0 }, wantErr: "llm.contextWindowTokens must exceed llm.maxTokens"},
		{name: "no provider", mutate: func(c *Config) { c.LLM.Provider = " " }, wantErr: "llm.provider cannot be empty"},
		{name: "window below output", mutate: func(c *Config) { c.LLM.ContextWindowTokens = 512 }, wantErr: "llm.contextWindowTokens must exceed llm.maxTokens"},
		{name: "bad breaker threshold", mutate: func(c *Config) { c.LLM.Breaker.FailureThreshold = 1.5 }, wantErr: "llm.breaker.failureThreshold must be in (0, 1]"},
		{name: "rate limit without burst", mutate: func(c *Config) { c.HTTP.RateLimit.Burst = 0 }, wantErr: "http.rateLimit.burst must be positive"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
