package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	domusage "github.com/kailas-cloud/bshr/internal/domain/usage"
	logpkg "github.com/kailas-cloud/bshr/internal/logger"
	healthuc "github.com/kailas-cloud/bshr/internal/usecase/health"
)

const maxTopicBytes = 4 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the answer, usage and health endpoints.
type Server struct {
	answerer      Answerer
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(answerer Answerer, usage UsageReporter, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		answerer: answerer,
		usage:    usage,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		retryExhaustedHandler,
		sentinelHandler(domain.ErrInvalidTopic, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidQueryCount, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNoHypotheses, http.StatusUnprocessableEntity, ErrorCodeNoHypotheses),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrCompletionQuotaExceeded, http.StatusPaymentRequired, ErrorCodeQuotaExceeded),
		sentinelHandler(domain.ErrProviderError, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrMalformedCompletion, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrRetrievalFailed, http.StatusBadGateway, ErrorCodeRetrievalFailed),
	}
	return s
}

// Answer handles POST /answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTopicBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rep, err := s.answerer.Run(r.Context(), req.Topic)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("X-Run-ID", rep.RunID)
	w.Header().Set("X-Completion-Tokens", strconv.Itoa(rep.TotalTokens))
	writeJSON(w, http.StatusOK, reportToResponse(rep))
}

// GetUsage handles GET /usage?period=day|month|total.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter period")
		return
	}
	switch domusage.Period(raw) {
	case "", domusage.PeriodDay, domusage.PeriodMonth, domusage.PeriodTotal:
	default:
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			"period must be one of day, month, total")
		return
	}

	report := s.usage.GetReport(r.Context(), domusage.ParsePeriod(raw))
	b := report.Budget()
	resp := UsageResponse{
		Period: string(report.Period()),
		Budget: BudgetStatus{
			TokensLimit:     b.Limit,
			TokensUsed:      b.Used,
			TokensRemaining: b.Remaining,
			IsExhausted:     b.Exhausted,
		},
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if b.ResetsAt > 0 {
		resetsAt := time.UnixMilli(b.ResetsAt).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var exhausted *domain.RetryExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Error()
	}
	sentinels := []error{
		domain.ErrInvalidTopic,
		domain.ErrInvalidQueryCount,
		domain.ErrNoHypotheses,
		domain.ErrRateLimited,
		domain.ErrCompletionQuotaExceeded,
		domain.ErrProviderError,
		domain.ErrMalformedCompletion,
		domain.ErrRetrievalFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// retryExhaustedHandler maps RetryExhaustedError to 429 with a Retry-After hint.
func retryExhaustedHandler(w http.ResponseWriter, err error, msg string) bool {
	var exhausted *domain.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		return false
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, ErrorCodeRateLimited, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func reportToResponse(rep domain.Report) AnswerResponse {
	items := make([]ItemResponse, len(rep.Items))
	for i, it := range rep.Items {
		items[i] = ItemResponse{
			Query:      it.Query,
			Source:     string(it.Source),
			Condensed:  textPtr(it.Condensed),
			Relevant:   it.Relevant,
			Hypothesis: textPtr(it.Hypothesis),
		}
	}
	hypotheses := make([]*string, len(rep.Hypotheses))
	for i, h := range rep.Hypotheses {
		hypotheses[i] = textPtr(h)
	}
	return AnswerResponse{
		RunID:       rep.RunID,
		Topic:       rep.Topic,
		Answer:      rep.Answer,
		Queries:     rep.Queries,
		Retrieved:   rep.Retrieved,
		Items:       items,
		Hypotheses:  hypotheses,
		Winner:      textPtr(rep.Winner),
		Rounds:      rep.Rounds,
		Merges:      rep.Merges,
		RoundSizes:  rep.RoundSizes,
		ModelCalls:  rep.ModelCalls,
		TotalTokens: rep.TotalTokens,
		DurationMs:  rep.Duration.Milliseconds(),
	}
}

// textPtr maps an absent Text to JSON null.
func textPtr(t domain.Text) *string {
	v, ok := t.Get()
	if !ok {
		return nil
	}
	return &v
}
