package chatgpt

import (
	"context"
	"errors"
	"strings"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/classify"
	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

// Backend adapts Client to summarizer.Backend under a provider name.
type Backend struct {
	provider     string
	defaultModel string
	client       *Client
}

// NewBackend wires client as provider; defaultModel covers requests without a model.
func NewBackend(provider, defaultModel string, client *Client) *Backend {
	return &Backend{provider: provider, defaultModel: defaultModel, client: client}
}

// Summarize sends the rendered prompt as a single user message.
func (b *Backend) Summarize(ctx context.Context, req summarizer.BackendRequest) (summarizer.BackendResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = b.defaultModel
	}
	resp, err := b.client.CreateChatCompletion(ctx, string(req.Credential), ChatCompletionRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return summarizer.BackendResponse{}, classify.HTTPStatus(b.provider, apiErr.StatusCode, apiErr.Body, err)
		}
		if errors.Is(err, ErrMalformedResponse) {
			return summarizer.BackendResponse{}, summarizer.NewEmptyResponseError(b.provider + " returned " + err.Error())
		}
		return summarizer.BackendResponse{}, classify.Transport(b.provider, err)
	}
	if len(resp.Choices) == 0 {
		return summarizer.BackendResponse{}, summarizer.NewEmptyResponseError(b.provider + " returned no choices")
	}
	return summarizer.BackendResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
