package domain

import (
	"context"
	"sync"
)

type completionUsageKey struct{}

// CompletionUsage collects model usage for a single pipeline run.
// Stages run concurrently, so updates are guarded.
type CompletionUsage struct {
	mu          sync.Mutex
	calls       int
	totalTokens int
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *CompletionUsage) {
	u := &CompletionUsage{}
	return context.WithValue(ctx, completionUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *CompletionUsage {
	u, _ := ctx.Value(completionUsageKey{}).(*CompletionUsage)
	return u
}

// Record counts one model call and the tokens it consumed. Safe on a nil receiver.
func (u *CompletionUsage) Record(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.calls++
	u.totalTokens += tokens
	u.mu.Unlock()
}

// Calls returns the number of model calls recorded.
func (u *CompletionUsage) Calls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

// TotalTokens returns the tokens recorded so far.
func (u *CompletionUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalTokens
}
