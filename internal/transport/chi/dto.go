package chi

import "time"

// ErrorCode is the machine-readable error identifier in error responses.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeRateLimited      ErrorCode = "rate_limited"
	ErrorCodeQuotaExceeded    ErrorCode = "completion_quota_exceeded"
	ErrorCodeProviderError    ErrorCode = "completion_provider_error"
	ErrorCodeRetrievalFailed  ErrorCode = "retrieval_failed"
	ErrorCodeNoHypotheses     ErrorCode = "no_hypotheses"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AnswerRequest is the body of POST /answer.
type AnswerRequest struct {
	Topic string `json:"topic"`
}

// ItemResponse traces one retrieved item through processing.
type ItemResponse struct {
	Query      string  `json:"query"`
	Source     string  `json:"source"`
	Condensed  *string `json:"condensed"`
	Relevant   bool    `json:"relevant"`
	Hypothesis *string `json:"hypothesis"`
}

// AnswerResponse is the report of one pipeline run.
type AnswerResponse struct {
	RunID       string         `json:"run_id"`
	Topic       string         `json:"topic"`
	Answer      string         `json:"answer"`
	Queries     []string       `json:"queries"`
	Retrieved   int            `json:"retrieved"`
	Items       []ItemResponse `json:"items"`
	Hypotheses  []*string      `json:"hypotheses"`
	Winner      *string        `json:"winner"`
	Rounds      int            `json:"rounds"`
	Merges      int            `json:"merges"`
	RoundSizes  []int          `json:"round_sizes"`
	ModelCalls  int            `json:"model_calls"`
	TotalTokens int            `json:"total_tokens"`
	DurationMs  int64          `json:"duration_ms"`
}

// BudgetStatus is the token budget section of a usage response.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensUsed      int64      `json:"tokens_used"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
