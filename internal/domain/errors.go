package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTopic signals an empty or whitespace-only topic.
	ErrInvalidTopic = errors.New("invalid topic")
	// ErrInvalidQueryCount signals a brainstorm request for fewer than one query.
	ErrInvalidQueryCount = errors.New("invalid query count")
	// ErrNoHypotheses signals that there is nothing to run a tournament on.
	ErrNoHypotheses = errors.New("no hypotheses")

	// ErrRateLimited signals provider throttling.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderError signals a language model provider failure.
	ErrProviderError = errors.New("completion provider error")
	// ErrMalformedCompletion signals a completion that carries no usable text.
	ErrMalformedCompletion = errors.New("malformed completion")
	// ErrCompletionQuotaExceeded signals an exhausted token budget.
	ErrCompletionQuotaExceeded = errors.New("completion quota exceeded")
	// ErrRetrievalFailed signals a retrieval backend failure (not a miss).
	ErrRetrievalFailed = errors.New("retrieval failed")
)

// RetryExhaustedError is returned when every rate-limit retry was used up.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }
