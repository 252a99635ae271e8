// Package extractive is an offline backend that answers with lead sentences
// of the prompt body. It never touches the network.
package extractive

import (
	"context"
	"strings"
	"unicode"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

const defaultMaxWords = 60

// Backend keeps the first sentence of every paragraph until the word budget is spent.
type Backend struct {
	maxWords int
}

func NewBackend(maxWords int) *Backend {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}
	return &Backend{maxWords: maxWords}
}

func (b *Backend) Summarize(ctx context.Context, req summarizer.BackendRequest) (summarizer.BackendResponse, error) {
	if err := ctx.Err(); err != nil {
		return summarizer.BackendResponse{}, err
	}
	body := promptBody(req.Prompt)
	var (
		picked []string
		words  int
	)
	for _, para := range strings.Split(body, "\n\n") {
		sentence := firstSentence(para)
		if sentence == "" {
			continue
		}
		n := len(strings.Fields(sentence))
		if words > 0 && words+n > b.maxWords {
			break
		}
		picked = append(picked, sentence)
		words += n
	}
	text := strings.Join(picked, " ")
	return summarizer.BackendResponse{
		Text: text,
		Usage: metrics.TokenUsage{
			PromptTokens:     len(strings.Fields(req.Prompt)),
			CompletionTokens: words,
		},
	}, nil
}

// promptBody returns the quoted section of the default templates, or the
// whole prompt when no quoted section exists.
func promptBody(prompt string) string {
	first := strings.Index(prompt, "\"")
	last := strings.LastIndex(prompt, "\"")
	if first < 0 || last <= first {
		return strings.TrimSpace(prompt)
	}
	return strings.TrimSpace(prompt[first+1 : last])
}

func firstSentence(para string) string {
	para = strings.Join(strings.Fields(para), " ")
	for i, r := range para {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next == len(para) || unicode.IsSpace(rune(para[next])) {
			return para[:next]
		}
	}
	return para
}
