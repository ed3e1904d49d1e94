package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/metrics"
)

// RetryPolicy is a capped exponential backoff applied to rate-limited calls only.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxAttempts     int // total attempts including the first one
}

// DefaultRetryPolicy waits 2s, 4s, 8s, then 10s between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 2 * time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
		MaxAttempts:     6,
	}
}

// Backoff returns the wait before retry number n (1-based).
func (p RetryPolicy) Backoff(n int) time.Duration {
	d := p.InitialInterval
	if d <= 0 {
		d = time.Millisecond
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * mult)
		if p.MaxInterval > 0 && d >= p.MaxInterval {
			return p.MaxInterval
		}
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		return p.MaxInterval
	}
	return d
}

// RetryingCompleter re-issues a call after domain.ErrRateLimited with exponential
// backoff. Every other error is returned as is.
type RetryingCompleter struct {
	inner    domain.Completer
	policy   RetryPolicy
	provider string
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryingCompleter wraps inner with the given policy.
func NewRetryingCompleter(
	inner domain.Completer, policy RetryPolicy, provider string, logger *zap.Logger,
) *RetryingCompleter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &RetryingCompleter{
		inner:    inner,
		policy:   policy,
		provider: provider,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Complete calls inner until it succeeds, fails with a non rate-limit error,
// or the attempt budget runs out.
func (r *RetryingCompleter) Complete(
	ctx context.Context, req domain.CompletionRequest,
) (domain.Completion, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		res, err := r.inner.Complete(ctx, req)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return domain.Completion{}, err
		}
		lastErr = err
		if attempt == r.policy.MaxAttempts {
			break
		}

		wait := r.policy.Backoff(attempt)
		r.logger.Warn("Completion rate limited, backing off",
			zap.String("provider", r.provider),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		)
		metrics.CompletionRetriesTotal.WithLabelValues(r.provider).Inc()

		if err := r.sleep(ctx, wait); err != nil {
			return domain.Completion{}, fmt.Errorf("rate limit backoff: %w", err)
		}
	}

	return domain.Completion{}, &domain.RetryExhaustedError{
		Attempts: r.policy.MaxAttempts,
		Last:     lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
