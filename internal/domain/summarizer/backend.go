package summarizer

import (
	"context"
	"time"

	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

// Stage distinguishes chunk summarization from summary combination.
type Stage string

const (
	StageMap    Stage = "map"
	StageReduce Stage = "reduce"
)

// BackendRequest carries one fully rendered prompt to an LLM provider.
type BackendRequest struct {
	Stage       Stage
	Prompt      string
	Model       string
	Credential  Credential
	Temperature float32
	MaxTokens   int
}

// BackendResponse is the provider's text plus reported token usage.
type BackendResponse struct {
	Text  string
	Usage metrics.TokenUsage
}

// Backend is one LLM provider. Implementations return errors carrying the
// codes declared in errors.go.
type Backend interface {
	Summarize(ctx context.Context, req BackendRequest) (BackendResponse, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req BackendRequest) (BackendResponse, error)

func (f BackendFunc) Summarize(ctx context.Context, req BackendRequest) (BackendResponse, error) {
	return f(ctx, req)
}

// Backends maps provider names to implementations.
type Backends map[string]Backend

// TokenCounter estimates prompt sizes for context window checks.
type TokenCounter interface {
	Count(text string) int
}

// MetricsRecorder observes pipeline runs.
type MetricsRecorder interface {
	ObserveRun(outcome string, d time.Duration)
	ObserveBackendCall(provider, stage, outcome string, d time.Duration)
	ObserveChunks(n int)
	ObserveReduceRounds(n int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRun(string, time.Duration)                         {}
func (noopRecorder) ObserveBackendCall(string, string, string, time.Duration) {}
func (noopRecorder) ObserveChunks(int)                                        {}
func (noopRecorder) ObserveReduceRounds(int)                                  {}
