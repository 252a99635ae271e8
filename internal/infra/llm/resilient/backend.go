// Package resilient decorates a summarizer backend with retries, a circuit
// breaker and client-side rate limiting.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
)

// Config tunes the decorator. Zero delays and zero breaker settings fall back
// to DefaultConfig. MaxRetries, Jitter and RatePerSecond are used as given, so
// zero disables retries, jitter and rate limiting respectively.
type Config struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration

	RatePerSecond float64
	Burst         int

	Breaker BreakerConfig
}

// BreakerConfig mirrors gobreaker.Settings with a failure-ratio trip rule.
type BreakerConfig struct {
	Disabled         bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns 3 retries with exponential backoff from 500ms capped at 10s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Jitter:        100 * time.Millisecond,
		RatePerSecond: 5,
		Burst:         5,
		Breaker: BreakerConfig{
			MaxRequests:      3,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
	}
}

// Backend is the decorated provider.
type Backend struct {
	name    string
	next    summarizer.Backend
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Wrap decorates next, which is registered under name.
func Wrap(name string, next summarizer.Backend, cfg Config, logger *slog.Logger) *Backend {
	def := DefaultConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	logger = logger.With("component", "llm.resilient", "provider", name)

	b := &Backend{name: name, next: next, cfg: cfg, logger: logger}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if !cfg.Breaker.Disabled {
		b.breaker = newBreaker(name, cfg.Breaker, logger)
	}
	return b
}

func newBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	def := DefaultConfig().Breaker
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		// only provider unavailability counts against the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || !summarizer.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "circuit", name, "from", from.String(), "to", to.String())
		},
	})
}

func (b *Backend) backoff() retry.Backoff {
	backoff := retry.NewExponential(b.cfg.BaseDelay)
	backoff = retry.WithCappedDuration(b.cfg.MaxDelay, backoff)
	if b.cfg.Jitter > 0 {
		backoff = retry.WithJitter(b.cfg.Jitter, backoff)
	}
	return retry.WithMaxRetries(b.cfg.MaxRetries, backoff)
}

// Summarize retries unavailability only. An open breaker fails fast.
func (b *Backend) Summarize(ctx context.Context, req summarizer.BackendRequest) (summarizer.BackendResponse, error) {
	var (
		out     summarizer.BackendResponse
		attempt int
	)
	err := retry.Do(ctx, b.backoff(), func(ctx context.Context) error {
		attempt++
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("wait for %s rate limiter: %w", b.name, err)
			}
		}
		resp, err := b.execute(ctx, req)
		if err == nil {
			out = resp
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return summarizer.NewBackendUnavailableError(b.name+" circuit breaker open", err)
		}
		if summarizer.IsRetryable(err) && ctx.Err() == nil {
			b.logger.Warn("backend call failed, retrying", "stage", req.Stage, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return summarizer.BackendResponse{}, err
	}
	return out, nil
}

func (b *Backend) execute(ctx context.Context, req summarizer.BackendRequest) (summarizer.BackendResponse, error) {
	if b.breaker == nil {
		return b.next.Summarize(ctx, req)
	}
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Summarize(ctx, req)
	})
	if err != nil {
		return summarizer.BackendResponse{}, err
	}
	return res.(summarizer.BackendResponse), nil
}

// State reports the breaker state for health output.
func (b *Backend) State() string {
	if b.breaker == nil {
		return "disabled"
	}
	return b.breaker.State().String()
}
