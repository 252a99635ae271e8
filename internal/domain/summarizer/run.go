package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

// Caller renders a prompt for the stage and returns the backend's summary text.
type Caller func(ctx context.Context, stage Stage, data PromptData) (string, error)

// run holds the state of one pipeline invocation. The credential lives here and
// nowhere else.
type run struct {
	backend    Backend
	provider   string
	model      string
	credential Credential
	cfg        Config
	prompts    *Prompts
	counter    TokenCounter
	recorder   MetricsRecorder
	logger     *slog.Logger

	mapCalls    atomic.Int64
	reduceCalls atomic.Int64

	mu    sync.Mutex
	usage metrics.TokenUsage
}

func (r *run) call(ctx context.Context, stage Stage, data PromptData) (string, error) {
	prompt, err := r.prompts.Render(stage, data)
	if err != nil {
		return "", err
	}
	if err := r.checkBudget(stage, prompt); err != nil {
		return "", err
	}

	if stage == StageMap {
		r.mapCalls.Add(1)
	} else {
		r.reduceCalls.Add(1)
	}

	start := time.Now()
	resp, err := r.backend.Summarize(ctx, BackendRequest{
		Stage:       stage,
		Prompt:      prompt,
		Model:       r.model,
		Credential:  r.credential,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxOutputTokens,
	})
	latency := time.Since(start)
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = NewEmptyResponseError(fmt.Sprintf("%s backend returned an empty %s summary", r.provider, stage))
	}
	r.recorder.ObserveBackendCall(r.provider, string(stage), outcomeOf(err), latency)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.usage = r.usage.Add(resp.Usage)
	r.mu.Unlock()

	r.logger.Debug("backend call completed", "stage", stage, "index", data.Index, "round", data.Round, "latency_ms", latency.Milliseconds())
	return strings.TrimSpace(resp.Text), nil
}

func (r *run) checkBudget(stage Stage, prompt string) error {
	if r.counter == nil || r.cfg.ContextWindowTokens <= 0 {
		return nil
	}
	tokens := r.counter.Count(prompt)
	if tokens+r.cfg.MaxOutputTokens > r.cfg.ContextWindowTokens {
		return NewInputTooLargeError(fmt.Sprintf("%s prompt needs %d tokens plus %d for the answer; the context window is %d", stage, tokens, r.cfg.MaxOutputTokens, r.cfg.ContextWindowTokens), nil)
	}
	return nil
}

func (r *run) tokenUsage() *metrics.TokenUsage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usage.IsZero() {
		return nil
	}
	usage := r.usage
	return &usage
}
