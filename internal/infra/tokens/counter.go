// Package tokens measures prompt sizes for context window checks.
package tokens

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultEncoding = "cl100k_base"
	runesPerToken   = 4
)

// Tiktoken counts BPE tokens with a tiktoken encoding.
type Tiktoken struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// NewTiktoken accepts an encoding name or a model name.
func NewTiktoken(encodingOrModel string) (*Tiktoken, error) {
	if strings.TrimSpace(encodingOrModel) == "" {
		encodingOrModel = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encodingOrModel)
	if err != nil {
		var modelErr error
		tke, modelErr = tiktoken.EncodingForModel(encodingOrModel)
		if modelErr != nil {
			return nil, err
		}
	}
	return &Tiktoken{encoding: encodingOrModel, tke: tke}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.tke.Encode(text, nil, nil))
}

func (t *Tiktoken) Encoding() string {
	return t.encoding
}

// Approximate assumes four runes per token, rounding up.
type Approximate struct{}

func (Approximate) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + runesPerToken - 1) / runesPerToken
}

// Counter is the subset of counters used by the summarizer.
type Counter interface {
	Count(text string) int
}

// NewCounter prefers tiktoken. Loading an encoding may need network access to
// fetch the BPE ranks, so failures degrade to Approximate.
func NewCounter(encoding string, logger *slog.Logger) Counter {
	counter, err := NewTiktoken(encoding)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, using approximate token counts", "encoding", encoding, "error", err)
		return Approximate{}
	}
	return counter
}
