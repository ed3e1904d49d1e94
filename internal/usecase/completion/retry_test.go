package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

// scriptedCompleter returns errs in order, then succeeds.
type scriptedCompleter struct {
	errs  []error
	calls int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ domain.CompletionRequest) (domain.Completion, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return domain.Completion{}, s.errs[s.calls-1]
	}
	return domain.Completion{Text: "ok", TotalTokens: 3}, nil
}

func newTestRetrying(inner domain.Completer, attempts int) (*RetryingCompleter, *[]time.Duration) {
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = attempts
	r := NewRetryingCompleter(inner, policy, "test", zap.NewNop())
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestRetryingCompleter_SucceedsAfterRateLimit(t *testing.T) {
	rl := fmt.Errorf("openai: %w", domain.ErrRateLimited)
	inner := &scriptedCompleter{errs: []error{rl, rl}}
	r, waits := newTestRetrying(inner, 6)

	res, err := r.Complete(context.Background(), domain.CompletionRequest{User: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("expected text ok, got %q", res.Text)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
	if len(*waits) != 2 || (*waits)[0] != 2*time.Second || (*waits)[1] != 4*time.Second {
		t.Errorf("unexpected waits: %v", *waits)
	}
}

func TestRetryingCompleter_Exhausted(t *testing.T) {
	rl := fmt.Errorf("openai: %w", domain.ErrRateLimited)
	inner := &scriptedCompleter{errs: []error{rl, rl, rl, rl}}
	r, waits := newTestRetrying(inner, 3)

	_, err := r.Complete(context.Background(), domain.CompletionRequest{User: "q"})

	var exhausted *domain.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", exhausted.Attempts)
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Error("expected exhaustion to unwrap to ErrRateLimited")
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
	if len(*waits) != 2 {
		t.Errorf("expected 2 waits, got %d", len(*waits))
	}
}

func TestRetryingCompleter_NonRateLimitNotRetried(t *testing.T) {
	inner := &scriptedCompleter{errs: []error{fmt.Errorf("openai: %w", domain.ErrProviderError)}}
	r, waits := newTestRetrying(inner, 6)

	_, err := r.Complete(context.Background(), domain.CompletionRequest{User: "q"})
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
	if len(*waits) != 0 {
		t.Errorf("expected no waits, got %v", *waits)
	}
}

func TestRetryingCompleter_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &scriptedCompleter{errs: []error{domain.ErrRateLimited}}
	r := NewRetryingCompleter(inner, DefaultRetryPolicy(), "test", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Complete(ctx, domain.CompletionRequest{User: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}
