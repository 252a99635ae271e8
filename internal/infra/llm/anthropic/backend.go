// Package anthropic serves the summarizer through the Claude Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/classify"
	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

const providerName = "anthropic"

// DefaultModel is used when neither the request nor the config names one.
var DefaultModel = string(anthropic.Model("claude-sonnet-4-5-20250929"))

// Backend wraps the SDK client. Retries are left to the resilient decorator,
// and the API key travels as a per-request option.
type Backend struct {
	client       anthropic.Client
	defaultModel string
}

// NewBackend builds the backend; baseURL is optional.
func NewBackend(baseURL, defaultModel string, timeout time.Duration) *Backend {
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if u := strings.TrimSpace(baseURL); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	return &Backend{
		client:       anthropic.NewClient(opts...),
		defaultModel: defaultModel,
	}
}

func (b *Backend) Summarize(ctx context.Context, req summarizer.BackendRequest) (summarizer.BackendResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = b.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = summarizer.DefaultMaxOutputTokens
	}
	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}, option.WithAPIKey(string(req.Credential)))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return summarizer.BackendResponse{}, classify.HTTPStatus(providerName, apiErr.StatusCode, apiErr.Error(), err)
		}
		return summarizer.BackendResponse{}, classify.Transport(providerName, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return summarizer.BackendResponse{}, summarizer.NewEmptyResponseError("anthropic returned no text content")
	}
	return summarizer.BackendResponse{
		Text: text.String(),
		Usage: metrics.TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}
