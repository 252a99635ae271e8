// Package openai serves the summarizer through the go-openai SDK.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm/classify"
	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

const (
	providerName = "openai"
	DefaultModel = goopenai.GPT4oMini
)

// Backend calls the chat completions API. The SDK client is bound to an API
// key, so one is built per call on a shared http.Client.
type Backend struct {
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewBackend builds the backend. baseURL may point at any OpenAI-compatible server.
func NewBackend(baseURL, defaultModel string, timeout time.Duration) *Backend {
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Backend{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (b *Backend) client(apiKey string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if b.baseURL != "" {
		cfg.BaseURL = b.baseURL
	}
	cfg.HTTPClient = b.httpClient
	return goopenai.NewClientWithConfig(cfg)
}

func (b *Backend) Summarize(ctx context.Context, req summarizer.BackendRequest) (summarizer.BackendResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = b.defaultModel
	}
	resp, err := b.client(string(req.Credential)).CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{{
			Role:    goopenai.ChatMessageRoleUser,
			Content: req.Prompt,
		}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return summarizer.BackendResponse{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return summarizer.BackendResponse{}, summarizer.NewEmptyResponseError("openai returned no choices")
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

func classifyError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Message
		if code, ok := apiErr.Code.(string); ok && code != "" {
			detail = code + ": " + detail
		}
		return classify.HTTPStatus(providerName, apiErr.HTTPStatusCode, detail, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classify.HTTPStatus(providerName, reqErr.HTTPStatusCode, "", err)
	}
	// the SDK returns decoder errors as-is for 2xx bodies it cannot parse
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return summarizer.NewEmptyResponseError(fmt.Sprintf("%s returned a malformed chat completion: %v", providerName, err))
	}
	return classify.Transport(providerName, err)
}
