// Package classify maps provider failures onto the summarizer error codes.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
)

// HTTPStatus classifies a non-2xx provider response.
func HTTPStatus(provider string, status int, detail string, err error) error {
	msg := fmt.Sprintf("%s returned status %d", provider, status)
	if d := strings.TrimSpace(detail); d != "" {
		msg += ": " + truncate(d, 300)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return summarizer.NewAuthenticationError(msg, err)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return summarizer.NewBackendUnavailableError(msg, err)
	case status == http.StatusRequestEntityTooLarge || mentionsContextLength(detail):
		return summarizer.NewInputTooLargeError(msg, err)
	default:
		return summarizer.NewBackendRejectedError(msg, err)
	}
}

// Transport classifies a failure that produced no HTTP response. Caller
// cancellation is returned unchanged so it is never retried.
func Transport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return summarizer.NewBackendUnavailableError(provider+" request failed", err)
}

func mentionsContextLength(detail string) bool {
	d := strings.ToLower(detail)
	return strings.Contains(d, "context_length_exceeded") ||
		strings.Contains(d, "context length") ||
		strings.Contains(d, "prompt is too long")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
