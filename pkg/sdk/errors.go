package bshr

import "github.com/kailas-cloud/bshr/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidTopic            = domain.ErrInvalidTopic
	ErrNoHypotheses            = domain.ErrNoHypotheses
	ErrRateLimited             = domain.ErrRateLimited
	ErrProviderError           = domain.ErrProviderError
	ErrMalformedCompletion     = domain.ErrMalformedCompletion
	ErrCompletionQuotaExceeded = domain.ErrCompletionQuotaExceeded
	ErrRetrievalFailed         = domain.ErrRetrievalFailed
)

// RetryExhaustedError is returned when a rate-limited call kept failing after
// every retry. Use errors.As() to check.
type RetryExhaustedError = domain.RetryExhaustedError
