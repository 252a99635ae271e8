// Package llm assembles the summarizer backends from configuration.
package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/config"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/anthropic"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/chatgpt"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/extractive"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/openai"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/resilient"
)

// Provider names accepted in llm.provider and per request.
const (
	ProviderGroq       = "groq"
	ProviderChatGPT    = "chatgpt"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderExtractive = "extractive"
)

// NewBackends builds every provider. Remote providers are wrapped with
// retries, a circuit breaker and a rate limiter; the offline backend is not.
func NewBackends(cfg *config.Config, logger *slog.Logger) (summarizer.Backends, error) {
	llmCfg := cfg.LLM
	if _, ok := knownProviders()[strings.ToLower(llmCfg.Provider)]; !ok {
		return nil, fmt.Errorf("unknown llm provider %q", llmCfg.Provider)
	}
	policy := resilienceConfig(llmCfg)

	remote := map[string]summarizer.Backend{
		ProviderGroq: chatgpt.NewBackend(ProviderGroq, modelFor(llmCfg, ProviderGroq, summarizer.DefaultModel),
			chatgpt.NewClient(baseURLFor(llmCfg, ProviderGroq, chatgpt.DefaultBaseURL), llmCfg.Timeout)),
		ProviderChatGPT: chatgpt.NewBackend(ProviderChatGPT, modelFor(llmCfg, ProviderChatGPT, openai.DefaultModel),
			chatgpt.NewClient(baseURLFor(llmCfg, ProviderChatGPT, chatgpt.OpenAIBaseURL), llmCfg.Timeout)),
		ProviderOpenAI: openai.NewBackend(baseURLFor(llmCfg, ProviderOpenAI, ""),
			modelFor(llmCfg, ProviderOpenAI, openai.DefaultModel), llmCfg.Timeout),
		ProviderAnthropic: anthropic.NewBackend(baseURLFor(llmCfg, ProviderAnthropic, ""),
			modelFor(llmCfg, ProviderAnthropic, anthropic.DefaultModel), llmCfg.Timeout),
	}

	backends := make(summarizer.Backends, len(remote)+1)
	for name, backend := range remote {
		backends[name] = resilient.Wrap(name, backend, policy, logger)
	}
	backends[ProviderExtractive] = extractive.NewBackend(0)
	logger.Info("llm backends ready", "default_provider", llmCfg.Provider, "model", llmCfg.Model)
	return backends, nil
}

// SummaryConfig translates the loaded configuration into pipeline settings.
func SummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{
		MaxWords:             cfg.Summary.MaxWords,
		MaxChunkChars:        cfg.Summary.MaxChunkChars,
		ChunkOverlap:         cfg.Summary.ChunkOverlap,
		MaxCombineChars:      cfg.Summary.MaxCombineChars,
		Separators:           cfg.Summary.Separators,
		MapConcurrency:       cfg.Summary.MapConcurrency,
		ReduceConcurrency:    cfg.Summary.ReduceConcurrency,
		ContinueOnChunkError: cfg.Summary.ContinueOnChunkError,
		MapPrompt:            cfg.Summary.MapPrompt,
		ReducePrompt:         cfg.Summary.ReducePrompt,
		Provider:             strings.ToLower(cfg.LLM.Provider),
		Model:                cfg.LLM.Model,
		ProviderModels:       ProviderModels(cfg),
		Temperature:          cfg.LLM.Temperature,
		MaxOutputTokens:      cfg.LLM.MaxTokens,
		ContextWindowTokens:  cfg.LLM.ContextWindowTokens,
	}
}

// ProviderModels maps provider names to their configured models.
func ProviderModels(cfg *config.Config) map[string]string {
	out := make(map[string]string, len(cfg.LLM.Providers))
	for name, p := range cfg.LLM.Providers {
		if m := strings.TrimSpace(p.Model); m != "" {
			out[strings.ToLower(name)] = m
		}
	}
	return out
}

func knownProviders() map[string]struct{} {
	return map[string]struct{}{
		ProviderGroq:       {},
		ProviderChatGPT:    {},
		ProviderOpenAI:     {},
		ProviderAnthropic:  {},
		ProviderExtractive: {},
	}
}

// modelFor prefers llm.model for the default provider, then llm.providers.<name>.model.
func modelFor(cfg config.LLMConfig, provider, fallback string) string {
	if strings.EqualFold(cfg.Provider, provider) && strings.TrimSpace(cfg.Model) != "" {
		return cfg.Model
	}
	if p, ok := cfg.Providers[provider]; ok && strings.TrimSpace(p.Model) != "" {
		return p.Model
	}
	return fallback
}

// baseURLFor lets llm.baseUrl retarget the default provider only.
func baseURLFor(cfg config.LLMConfig, provider, fallback string) string {
	if strings.EqualFold(cfg.Provider, provider) && strings.TrimSpace(cfg.BaseURL) != "" {
		return cfg.BaseURL
	}
	if p, ok := cfg.Providers[provider]; ok && strings.TrimSpace(p.BaseURL) != "" {
		return p.BaseURL
	}
	return fallback
}

func resilienceConfig(cfg config.LLMConfig) resilient.Config {
	return resilient.Config{
		MaxRetries:    uint64(cfg.Retry.MaxRetries),
		BaseDelay:     cfg.Retry.BaseDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		Jitter:        cfg.Retry.Jitter,
		RatePerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:         cfg.RateLimit.Burst,
		Breaker: resilient.BreakerConfig{
			Disabled:         !cfg.Breaker.Enabled,
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MinRequests:      cfg.Breaker.MinRequests,
		},
	}
}
