package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Service exposes map-reduce summarization of long documents.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
}

type service struct {
	cfg      Config
	chunker  *Chunker
	prompts  *Prompts
	backends Backends
	counter  TokenCounter
	recorder MetricsRecorder
	logger   *slog.Logger
}

// NewService is a wire provider for the summarizer domain. counter and recorder may be nil.
func NewService(cfg Config, backends Backends, counter TokenCounter, recorder MetricsRecorder, logger *slog.Logger) (Service, error) {
	if err := checkLimits(cfg); err != nil {
		return nil, err
	}
	cfg = withDefaults(cfg)
	if cfg.ContextWindowTokens <= cfg.MaxOutputTokens {
		return nil, NewValidationError(fmt.Sprintf("context window of %d tokens leaves no room for a prompt with %d output tokens", cfg.ContextWindowTokens, cfg.MaxOutputTokens))
	}
	if len(backends) == 0 {
		return nil, NewValidationError("at least one summarizer backend is required")
	}
	chunker, err := NewChunker(cfg.MaxChunkChars, cfg.ChunkOverlap, cfg.Separators...)
	if err != nil {
		return nil, err
	}
	prompts, err := NewPrompts(cfg.MapPrompt, cfg.ReducePrompt)
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &service{
		cfg:      cfg,
		chunker:  chunker,
		prompts:  prompts,
		backends: backends,
		counter:  counter,
		recorder: recorder,
		logger:   logger.With("component", "summarizer.service"),
	}, nil
}

// Summarize validates the document, then chunks, maps and reduces it.
// No backend call is made until every validation has passed.
func (s *service) Summarize(ctx context.Context, req Request) (resp Response, err error) {
	start := time.Now()
	defer func() {
		s.recorder.ObserveRun(outcomeOf(err), time.Since(start))
	}()

	text := normalize(req.Text)
	if text == "" {
		return Response{}, NewValidationError("document cannot be empty")
	}
	words := countWords(text)
	if words > s.cfg.MaxWords {
		return Response{}, NewValidationError(fmt.Sprintf("document has %d words; the maximum is %d", words, s.cfg.MaxWords))
	}
	credential := Credential(strings.TrimSpace(string(req.Credential)))
	if credential == "" {
		return Response{}, NewAuthenticationError("an API key is required to call the summarizer backend", nil)
	}
	provider, model := s.resolveModel(req)
	backend, ok := s.backends[provider]
	if !ok {
		return Response{}, NewValidationError(fmt.Sprintf("unknown summarizer provider %q", provider))
	}

	logger := s.logger.With("run_id", uuid.NewString(), "provider", provider, "model", model)
	chunks := s.chunker.Split(text)
	s.recorder.ObserveChunks(len(chunks))
	logger.Info("summarization started", "words", words, "chunks", len(chunks))

	r := &run{
		backend:    backend,
		provider:   provider,
		model:      model,
		credential: credential,
		cfg:        s.cfg,
		prompts:    s.prompts,
		counter:    s.counter,
		recorder:   s.recorder,
		logger:     logger,
	}

	summaries, err := MapChunks(ctx, chunks, r.call, MapOptions{
		Concurrency:     s.cfg.MapConcurrency,
		ContinueOnError: s.cfg.ContinueOnChunkError,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("map stage failed", "error", err)
		return Response{}, fmt.Errorf("map stage: %w", err)
	}

	final, stats, err := ReduceSummaries(ctx, summaries, r.call, ReduceOptions{
		MaxCombineChars: s.cfg.MaxCombineChars,
		Concurrency:     s.cfg.ReduceConcurrency,
	})
	if err != nil {
		logger.Error("reduce stage failed", "error", err)
		return Response{}, fmt.Errorf("reduce stage: %w", err)
	}
	s.recorder.ObserveReduceRounds(stats.Rounds)

	duration := time.Since(start)
	logger.Info("summarization completed",
		"map_calls", r.mapCalls.Load(),
		"reduce_calls", r.reduceCalls.Load(),
		"reduce_rounds", stats.Rounds,
		"summary_length", len(final.Text),
		"duration_ms", duration.Milliseconds(),
	)

	return Response{
		Summary:      final.Text,
		Provider:     provider,
		Model:        model,
		WordCount:    words,
		Chunks:       len(chunks),
		MapCalls:     int(r.mapCalls.Load()),
		ReduceCalls:  int(r.reduceCalls.Load()),
		ReduceRounds: stats.Rounds,
		DurationMs:   duration.Milliseconds(),
		TokenUsage:   r.tokenUsage(),
	}, nil
}

// resolveModel applies request overrides. A request that switches provider
// without naming a model gets that provider's configured model, or "" so the
// backend picks its own default.
func (s *service) resolveModel(req Request) (string, string) {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = s.cfg.Provider
	}
	if model := strings.TrimSpace(req.Model); model != "" {
		return provider, model
	}
	if provider == s.cfg.Provider {
		return provider, s.cfg.Model
	}
	return provider, s.cfg.ProviderModels[provider]
}

// checkLimits rejects budgets that cannot be defaulted; zero means default.
func checkLimits(cfg Config) error {
	switch {
	case cfg.MaxCombineChars < 0:
		return NewValidationError("max combine chars cannot be negative")
	case cfg.MaxOutputTokens < 0:
		return NewValidationError("max output tokens cannot be negative")
	case cfg.ContextWindowTokens < 0:
		return NewValidationError("context window tokens cannot be negative")
	}
	return nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = def.MaxChunkChars
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.MaxCombineChars == 0 {
		cfg.MaxCombineChars = def.MaxCombineChars
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = def.MaxOutputTokens
	}
	if cfg.ContextWindowTokens == 0 {
		cfg.ContextWindowTokens = def.ContextWindowTokens
	}
	if cfg.MapConcurrency <= 0 {
		cfg.MapConcurrency = def.MapConcurrency
	}
	if cfg.ReduceConcurrency <= 0 {
		cfg.ReduceConcurrency = def.ReduceConcurrency
	}
	if strings.TrimSpace(cfg.Provider) == "" {
		cfg.Provider = def.Provider
		if cfg.Model == "" {
			cfg.Model = def.Model
		}
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return cfg
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func normalize(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)
	return text
}
