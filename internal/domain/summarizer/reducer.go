package summarizer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const summarySeparator = "\n\n"

// ReduceOptions controls the reduce stage.
type ReduceOptions struct {
	// MaxCombineChars bounds the runes of one batch joined by blank lines.
	// Zero or less puts everything in a single batch.
	MaxCombineChars int
	Concurrency     int
}

// ReduceStats reports the work done by ReduceSummaries.
type ReduceStats struct {
	Rounds int
	Calls  int
}

// ReduceSummaries combines summaries round by round until one remains.
// A single input is returned unchanged without a backend call.
func ReduceSummaries(ctx context.Context, summaries []Summary, call Caller, opts ReduceOptions) (Summary, ReduceStats, error) {
	var stats ReduceStats
	switch len(summaries) {
	case 0:
		return Summary{}, stats, NewValidationError("no summaries to reduce")
	case 1:
		return summaries[0], stats, nil
	}

	current := summaries
	for len(current) > 1 {
		stats.Rounds++
		round := stats.Rounds
		batches := BatchSummaries(current, opts.MaxCombineChars)
		next := make([]Summary, len(batches))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrencyLimit(opts.Concurrency))
		for i, batch := range batches {
			i, batch := i, batch
			if len(batch) == 1 {
				next[i] = batch[0]
				next[i].Index = i
				continue
			}
			stats.Calls++
			g.Go(func() error {
				text, err := call(gctx, StageReduce, PromptData{Text: joinSummaries(batch), Index: i + 1, Total: len(batch), Round: round})
				if err != nil {
					return fmt.Errorf("combine batch %d of round %d: %w", i+1, round, err)
				}
				next[i] = Summary{Index: i, Text: text, Sources: len(batch), Round: round}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Summary{}, stats, err
		}
		current = next
	}
	return current[0], stats, nil
}

// BatchSummaries groups summaries greedily in order. A batch closes when the
// next summary would push it past budget, but never before it holds two
// summaries, so every round at least halves the count.
func BatchSummaries(summaries []Summary, budget int) [][]Summary {
	var (
		batches [][]Summary
		current []Summary
		size    int
	)
	sepLen := utf8.RuneCountInString(summarySeparator)
	for _, s := range summaries {
		n := utf8.RuneCountInString(s.Text)
		added := n
		if len(current) > 0 {
			added += sepLen
		}
		if budget > 0 && len(current) >= 2 && size+added > budget {
			batches = append(batches, current)
			current, size, added = nil, 0, n
		}
		current = append(current, s)
		size += added
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func joinSummaries(batch []Summary) string {
	texts := make([]string, len(batch))
	for i, s := range batch {
		texts[i] = s.Text
	}
	return strings.Join(texts, summarySeparator)
}
