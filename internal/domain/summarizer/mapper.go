package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/yanqian/longtext-summarizer/pkg/errors"
)

const placeholderFormat = "[section %d could not be summarized]"

// MapOptions controls the map stage.
type MapOptions struct {
	Concurrency int
	// ContinueOnError substitutes a visible placeholder for a failed chunk
	// instead of aborting the batch.
	ContinueOnError bool
	Logger          *slog.Logger
}

// MapChunks summarizes every chunk independently. The result is index aligned
// with chunks whatever order the calls complete in.
func MapChunks(ctx context.Context, chunks []Chunk, call Caller, opts MapOptions) ([]Summary, error) {
	out := make([]Summary, len(chunks))
	if len(chunks) == 0 {
		return out, nil
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyLimit(opts.Concurrency))
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			text, err := call(gctx, StageMap, PromptData{Text: chunk.Text, Index: i + 1, Total: len(chunks)})
			if err == nil {
				out[i] = Summary{Index: i, Text: text, Sources: 1}
				return nil
			}
			if !opts.ContinueOnError || !substitutable(gctx, err) {
				return fmt.Errorf("summarize chunk %d of %d: %w", i+1, len(chunks), err)
			}
			logger.Warn("chunk summary replaced by placeholder", "chunk", i+1, "total", len(chunks), "error", err)
			out[i] = Summary{Index: i, Text: fmt.Sprintf(placeholderFormat, i+1), Sources: 1, Placeholder: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// substitutable excludes failures that would hit every chunk alike.
func substitutable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !apperrors.IsCode(err, CodeAuthentication)
}

func concurrencyLimit(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
