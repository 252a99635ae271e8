package llm

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/config"
)

func testLLMConfig(provider, baseURL string) *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		Provider: provider,
		Model:    "llama3-70b-8192",
		BaseURL:  baseURL,
		Timeout:  time.Second,
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Model: "claude-3-5-haiku-latest"},
		},
		Retry: config.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewBackendsRegistersEveryProvider(t *testing.T) {
	backends, err := NewBackends(testLLMConfig("groq", ""), newTestLogger())
	require.NoError(t, err)
	for _, name := range []string{ProviderGroq, ProviderChatGPT, ProviderOpenAI, ProviderAnthropic, ProviderExtractive} {
		require.Contains(t, backends, name)
	}
}

func TestNewBackendsRejectsUnknownProvider(t *testing.T) {
	_, err := NewBackends(testLLMConfig("mystery", ""), newTestLogger())
	require.ErrorContains(t, err, "unknown llm provider")
}

func TestDefaultProviderRetriesThroughDecorator(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer server.Close()

	backends, err := NewBackends(testLLMConfig("groq", server.URL), newTestLogger())
	require.NoError(t, err)

	resp, err := backends[ProviderGroq].Summarize(context.Background(), summarizer.BackendRequest{Prompt: "p", Credential: "gsk-live"})
	require.NoError(t, err)
	require.Equal(t, "done", resp.Text)
	require.Equal(t, int32(3), calls.Load())
}

func TestModelFor(t *testing.T) {
	cfg := testLLMConfig("groq", "").LLM
	require.Equal(t, "llama3-70b-8192", modelFor(cfg, ProviderGroq, "fallback"))
	require.Equal(t, "claude-3-5-haiku-latest", modelFor(cfg, ProviderAnthropic, "fallback"))
	require.Equal(t, "fallback", modelFor(cfg, ProviderOpenAI, "fallback"))
}

func TestProviderModels(t *testing.T) {
	models := ProviderModels(testLLMConfig("groq", ""))
	require.Equal(t, map[string]string{"anthropic": "claude-3-5-haiku-latest"}, models)
}

func TestSummaryConfig(t *testing.T) {
	cfg := testLLMConfig("Anthropic", "")
	cfg.Summary = config.SummaryConfig{MaxWords: 100, MaxChunkChars: 500, ChunkOverlap: 50, MapConcurrency: 2}
	cfg.LLM.MaxTokens = 256

	got := SummaryConfig(cfg)
	require.Equal(t, 100, got.MaxWords)
	require.Equal(t, 500, got.MaxChunkChars)
	require.Equal(t, 50, got.ChunkOverlap)
	require.Equal(t, 2, got.MapConcurrency)
	require.Equal(t, "anthropic", got.Provider)
	require.Equal(t, 256, got.MaxOutputTokens)
	require.Equal(t, "claude-3-5-haiku-latest", got.ProviderModels["anthropic"])
}
