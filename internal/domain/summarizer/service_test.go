package summarizer_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	apperrors "github.com/yanqian/longtext-summarizer/pkg/errors"
	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

const testCredential = summarizer.Credential("gsk-test-secret")

type stubBackend struct {
	mu       sync.Mutex
	requests []summarizer.BackendRequest
	failOn   func(req summarizer.BackendRequest) error
	reply    func(req summarizer.BackendRequest) string
}

func (s *stubBackend) Summarize(_ context.Context, req summarizer.BackendRequest) (summarizer.BackendResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.failOn != nil {
		if err := s.failOn(req); err != nil {
			return summarizer.BackendResponse{}, err
		}
	}
	text := "summary of section"
	if s.reply != nil {
		text = s.reply(req)
	}
	return summarizer.BackendResponse{
		Text:  text,
		Usage: metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	}, nil
}

func (s *stubBackend) calls(stage summarizer.Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.requests {
		if req.Stage == stage {
			n++
		}
	}
	return n
}

func (s *stubBackend) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubRecorder struct {
	mu       sync.Mutex
	outcomes []string
	chunks   []int
	rounds   []int
	calls    int
}

func (r *stubRecorder) ObserveRun(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *stubRecorder) ObserveBackendCall(_, _, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *stubRecorder) ObserveChunks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, n)
}

func (r *stubRecorder) ObserveReduceRounds(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, n)
}

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, backend summarizer.Backend, opts ...func(*summarizer.Config)) summarizer.Service {
	t.Helper()
	cfg := summarizer.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	svc, err := summarizer.NewService(cfg, summarizer.Backends{"groq": backend}, nil, nil, newTestLogger())
	require.NoError(t, err)
	return svc
}

// longDocument returns paragraphs of exactly 100 runes including the blank line.
func longDocument(paragraphs int) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "Paragraph %03d %s\n\n", i, strings.Repeat("lorem ", 14))
	}
	return b.String()
}

func TestSummarizeShortDocumentMakesOneCall(t *testing.T) {
	backend := &stubBackend{reply: func(summarizer.BackendRequest) string { return "  A short summary.  " }}
	svc := newTestService(t, backend)

	resp, err := svc.Summarize(context.Background(), summarizer.Request{
		Text:       "Go makes backend services easier to build and operate.",
		Credential: testCredential,
	})
	require.NoError(t, err)
	require.Equal(t, "A short summary.", resp.Summary)
	require.Equal(t, 1, resp.Chunks)
	require.Equal(t, 1, resp.MapCalls)
	require.Zero(t, resp.ReduceCalls)
	require.Zero(t, resp.ReduceRounds)
	require.Equal(t, 9, resp.WordCount)
	require.Equal(t, "groq", resp.Provider)
	require.Equal(t, summarizer.DefaultModel, resp.Model)
	require.Equal(t, &metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, resp.TokenUsage)

	require.Equal(t, 1, backend.total())
	req := backend.requests[0]
	require.Equal(t, summarizer.StageMap, req.Stage)
	require.Equal(t, testCredential, req.Credential)
	require.Equal(t, summarizer.DefaultModel, req.Model)
	require.Contains(t, req.Prompt, "Go makes backend services easier")
}

func TestSummarizeLongDocumentMapsThenReduces(t *testing.T) {
	backend := &stubBackend{reply: func(req summarizer.BackendRequest) string {
		if req.Stage == summarizer.StageReduce {
			return "final summary"
		}
		// echo the first full paragraph of the chunk
		idx := strings.Index(req.Prompt, "Paragraph ")
		return "starts at " + req.Prompt[idx+10:idx+13]
	}}
	recorder := &stubRecorder{}
	svc, err := summarizer.NewService(summarizer.DefaultConfig(), summarizer.Backends{"groq": backend}, nil, recorder, newTestLogger())
	require.NoError(t, err)

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: longDocument(120), Credential: testCredential})
	require.NoError(t, err)
	require.Equal(t, "final summary", resp.Summary)
	require.Equal(t, 3, resp.Chunks)
	require.Equal(t, 3, resp.MapCalls)
	require.Equal(t, 1, resp.ReduceCalls)
	require.Equal(t, 1, resp.ReduceRounds)
	require.Equal(t, 3, backend.calls(summarizer.StageMap))
	require.Equal(t, 1, backend.calls(summarizer.StageReduce))
	require.Equal(t, 60, resp.TokenUsage.TotalTokens)

	var reducePrompt string
	for _, req := range backend.requests {
		if req.Stage == summarizer.StageReduce {
			reducePrompt = req.Prompt
		}
	}
	first := strings.Index(reducePrompt, "starts at 000")
	second := strings.Index(reducePrompt, "starts at 047")
	third := strings.Index(reducePrompt, "starts at 093")
	require.True(t, first >= 0 && second > first && third > second, "partial summaries out of order:\n%s", reducePrompt)

	require.Equal(t, []string{"success"}, recorder.outcomes)
	require.Equal(t, []int{3}, recorder.chunks)
	require.Equal(t, []int{1}, recorder.rounds)
	require.Equal(t, 4, recorder.calls)
}

func TestSummarizeRejectsBeforeCallingBackend(t *testing.T) {
	tests := []struct {
		name     string
		req      summarizer.Request
		wantCode string
	}{
		{
			name:     "empty text",
			req:      summarizer.Request{Text: "   \n\t ", Credential: testCredential},
			wantCode: summarizer.CodeValidation,
		},
		{
			name:     "too many words",
			req:      summarizer.Request{Text: strings.Repeat("word ", 25000), Credential: testCredential},
			wantCode: summarizer.CodeValidation,
		},
		{
			name:     "missing credential",
			req:      summarizer.Request{Text: "some text"},
			wantCode: summarizer.CodeAuthentication,
		},
		{
			name:     "blank credential",
			req:      summarizer.Request{Text: "some text", Credential: "   "},
			wantCode: summarizer.CodeAuthentication,
		},
		{
			name:     "unknown provider",
			req:      summarizer.Request{Text: "some text", Provider: "mystery", Credential: testCredential},
			wantCode: summarizer.CodeValidation,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			backend := &stubBackend{}
			svc := newTestService(t, backend)

			_, err := svc.Summarize(context.Background(), tt.req)
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, tt.wantCode), "got %v", err)
			require.Zero(t, backend.total())
		})
	}
}

func TestSummarizeAcceptsExactlyMaxWords(t *testing.T) {
	backend := &stubBackend{}
	svc := newTestService(t, backend, func(cfg *summarizer.Config) {
		cfg.MaxWords = 50
	})

	_, err := svc.Summarize(context.Background(), summarizer.Request{Text: strings.Repeat("word ", 50), Credential: testCredential})
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), summarizer.Request{Text: strings.Repeat("word ", 51), Credential: testCredential})
	require.True(t, apperrors.IsCode(err, summarizer.CodeValidation))
}

func TestSummarizePropagatesBackendErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "unavailable", err: summarizer.NewBackendUnavailableError("groq: 503", nil), wantCode: summarizer.CodeBackendUnavailable},
		{name: "rejected credential", err: summarizer.NewAuthenticationError("groq: 401", nil), wantCode: summarizer.CodeAuthentication},
		{name: "rejected request", err: summarizer.NewBackendRejectedError("groq: 400", nil), wantCode: summarizer.CodeBackendRejected},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			backend := &stubBackend{failOn: func(summarizer.BackendRequest) error { return tt.err }}
			svc := newTestService(t, backend)

			_, err := svc.Summarize(context.Background(), summarizer.Request{Text: longDocument(120), Credential: testCredential})
			require.ErrorContains(t, err, "map stage")
			require.True(t, apperrors.IsCode(err, tt.wantCode))
		})
	}
}

func TestSummarizeTreatsBlankReplyAsEmptyResponse(t *testing.T) {
	backend := &stubBackend{reply: func(summarizer.BackendRequest) string { return " \n " }}
	svc := newTestService(t, backend)

	_, err := svc.Summarize(context.Background(), summarizer.Request{Text: "some text", Credential: testCredential})
	require.True(t, apperrors.IsCode(err, summarizer.CodeEmptyResponse))
}

func TestSummarizeRejectsPromptsOverTheContextWindow(t *testing.T) {
	backend := &stubBackend{}
	svc, err := summarizer.NewService(summarizer.DefaultConfig(), summarizer.Backends{"groq": backend}, fixedCounter(8000), nil, newTestLogger())
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), summarizer.Request{Text: "some text", Credential: testCredential})
	require.True(t, apperrors.IsCode(err, summarizer.CodeInputTooLarge))
	require.Zero(t, backend.total())
}

func TestSummarizeNeverLogsCredential(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	backend := &stubBackend{}
	svc, err := summarizer.NewService(summarizer.DefaultConfig(), summarizer.Backends{"groq": backend}, nil, nil, logger)
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), summarizer.Request{Text: longDocument(120), Credential: testCredential})
	require.NoError(t, err)

	backend.failOn = func(summarizer.BackendRequest) error {
		return summarizer.NewAuthenticationError("groq rejected the credential", nil)
	}
	_, err = svc.Summarize(context.Background(), summarizer.Request{Text: "some text", Credential: testCredential})
	require.Error(t, err)

	require.NotEmpty(t, buf.String())
	require.NotContains(t, buf.String(), string(testCredential))
	require.NotContains(t, fmt.Sprintf("%v %+v", testCredential, summarizer.Request{Credential: testCredential}), string(testCredential))
}

func TestSummarizeRoutesProviderOverride(t *testing.T) {
	groq := &stubBackend{}
	anthropic := &stubBackend{}
	cfg := summarizer.DefaultConfig()
	cfg.ProviderModels = map[string]string{"anthropic": "claude-3-5-haiku-latest"}
	svc, err := summarizer.NewService(cfg, summarizer.Backends{"groq": groq, "anthropic": anthropic}, nil, nil, newTestLogger())
	require.NoError(t, err)

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: "some text", Provider: "anthropic", Credential: testCredential})
	require.NoError(t, err)
	require.Equal(t, "anthropic", resp.Provider)
	require.Equal(t, "claude-3-5-haiku-latest", resp.Model)
	require.Zero(t, groq.total())
	require.Equal(t, 1, anthropic.total())
}

func TestNewServiceValidatesConfig(t *testing.T) {
	_, err := summarizer.NewService(summarizer.DefaultConfig(), nil, nil, nil, newTestLogger())
	require.True(t, apperrors.IsCode(err, summarizer.CodeValidation))

	invalid := []func(*summarizer.Config){
		func(c *summarizer.Config) { c.ChunkOverlap = c.MaxChunkChars },
		func(c *summarizer.Config) { c.MaxCombineChars = -1 },
		func(c *summarizer.Config) { c.MaxOutputTokens = -1 },
		func(c *summarizer.Config) { c.ContextWindowTokens = -1 },
		func(c *summarizer.Config) { c.ContextWindowTokens = 1024; c.MaxOutputTokens = 1024 },
	}
	for i, mutate := range invalid {
		cfg := summarizer.DefaultConfig()
		mutate(&cfg)
		_, err = summarizer.NewService(cfg, summarizer.Backends{"groq": &stubBackend{}}, nil, nil, newTestLogger())
		require.True(t, apperrors.IsCode(err, summarizer.CodeValidation), "case %d: got %v", i, err)
	}
}

func TestPartialConfigKeepsReduceBudget(t *testing.T) {
	longSummary := strings.TrimSpace(strings.Repeat("word ", 200))
	backend := &stubBackend{reply: func(req summarizer.BackendRequest) string {
		if req.Stage == summarizer.StageMap {
			return longSummary
		}
		return "combined"
	}}
	svc, err := summarizer.NewService(summarizer.Config{Provider: "groq", Model: "m"}, summarizer.Backends{"groq": backend}, nil, nil, newTestLogger())
	require.NoError(t, err)

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: longDocument(600), Credential: testCredential})
	require.NoError(t, err)
	require.Greater(t, resp.Chunks, 10)
	require.Greater(t, resp.ReduceCalls, 1)
	require.GreaterOrEqual(t, resp.ReduceRounds, 2)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	for _, req := range backend.requests {
		if req.Stage == summarizer.StageReduce {
			require.Less(t, len([]rune(req.Prompt)), summarizer.DefaultMaxCombineChars+2000)
			require.Equal(t, summarizer.DefaultMaxOutputTokens, req.MaxTokens)
		}
	}
}
