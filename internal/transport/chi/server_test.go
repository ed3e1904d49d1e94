package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	domusage "github.com/kailas-cloud/bshr/internal/domain/usage"
	"github.com/kailas-cloud/bshr/internal/metrics"
	healthuc "github.com/kailas-cloud/bshr/internal/usecase/health"
)

func TestMain(m *testing.M) {
	metrics.RegisterHTTPMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockAnswerer struct {
	rep   domain.Report
	err   error
	topic string
}

func (m *mockAnswerer) Run(_ context.Context, topic string) (domain.Report, error) {
	m.topic = topic
	return m.rep, m.err
}

type mockUsage struct {
	period domusage.Period
}

func (m *mockUsage) GetReport(_ context.Context, p domusage.Period) domusage.Report {
	m.period = p
	return domusage.NewReport(p, 1000, 2000, domusage.Budget{Limit: 100, Used: 100, Exhausted: true, ResetsAt: 2000})
}

type mockHealth struct {
	status healthuc.Status
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report {
	return healthuc.Report{Status: m.status, Checks: map[string]healthuc.CheckResult{"llm": healthuc.CheckOK}}
}

func newTestRouter(a *mockAnswerer, u *mockUsage, h *mockHealth, keys ...string) http.Handler {
	return NewRouter(NewServer(a, u, h, zap.NewNop()), keys, zap.NewNop())
}

func postAnswer(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/answer", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestAnswer_OK(t *testing.T) {
	a := &mockAnswerer{rep: domain.Report{
		RunID:       "run-1",
		Topic:       "benefits of sleep",
		Answer:      "Sleep helps.",
		Queries:     []string{"q1", "q2"},
		Retrieved:   1,
		Items:       []domain.ItemTrace{{Query: "q1", Source: domain.SourceWeb, Condensed: domain.NoText()}},
		Winner:      domain.SomeText("w"),
		Rounds:      0,
		RoundSizes:  []int{1},
		TotalTokens: 42,
		Duration:    1500 * time.Millisecond,
	}}
	rr := postAnswer(t, newTestRouter(a, &mockUsage{}, &mockHealth{}), `{"topic":"benefits of sleep"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body)
	}
	if a.topic != "benefits of sleep" {
		t.Errorf("topic not passed through: %q", a.topic)
	}
	if rr.Header().Get("X-Completion-Tokens") != "42" || rr.Header().Get("X-Run-ID") != "run-1" {
		t.Errorf("unexpected headers: %v", rr.Header())
	}

	var resp AnswerResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Sleep helps." || resp.DurationMs != 1500 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Winner == nil || *resp.Winner != "w" {
		t.Errorf("expected winner w, got %v", resp.Winner)
	}
	if resp.Items[0].Condensed != nil {
		t.Error("absent condensation must encode as null")
	}
}

func TestAnswer_InvalidBody(t *testing.T) {
	rr := postAnswer(t, newTestRouter(&mockAnswerer{}, &mockUsage{}, &mockHealth{}), `{"topic":`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestAnswer_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{domain.ErrInvalidTopic, http.StatusBadRequest, ErrorCodeValidationFailed},
		{fmt.Errorf("retrieve: %w", domain.ErrNoHypotheses), http.StatusUnprocessableEntity, ErrorCodeNoHypotheses},
		{fmt.Errorf("tournament: %w", &domain.RetryExhaustedError{Attempts: 6, Last: domain.ErrRateLimited}),
			http.StatusTooManyRequests, ErrorCodeRateLimited},
		{fmt.Errorf("budget check: %w", domain.ErrCompletionQuotaExceeded), http.StatusPaymentRequired, ErrorCodeQuotaExceeded},
		{fmt.Errorf("complete: %w", domain.ErrProviderError), http.StatusBadGateway, ErrorCodeProviderError},
		{fmt.Errorf("boom"), http.StatusInternalServerError, ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := postAnswer(t, newTestRouter(&mockAnswerer{err: tt.err}, &mockUsage{}, &mockHealth{}), `{"topic":"x"}`)
			if rr.Code != tt.status {
				t.Fatalf("got %d, want %d", rr.Code, tt.status)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("code %q, want %q", resp.Code, tt.code)
			}
			if tt.code == ErrorCodeInternalError && resp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestGetUsage(t *testing.T) {
	u := &mockUsage{}
	h := newTestRouter(&mockAnswerer{}, u, &mockHealth{})

	req := httptest.NewRequest("GET", "/usage?period=day", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	if u.period != domusage.PeriodDay {
		t.Errorf("expected day period, got %q", u.period)
	}
	var resp UsageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Budget.IsExhausted || resp.Budget.TokensLimit != 100 {
		t.Errorf("unexpected budget: %+v", resp.Budget)
	}
	if resp.PeriodStartAt == nil || resp.Budget.ResetsAt == nil {
		t.Error("expected period bounds and reset time")
	}
}

func TestGetUsage_DefaultsToMonth(t *testing.T) {
	u := &mockUsage{}
	h := newTestRouter(&mockAnswerer{}, u, &mockHealth{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/usage", http.NoBody))

	if rr.Code != http.StatusOK || u.period != domusage.PeriodMonth {
		t.Errorf("got %d / %q, want 200 / month", rr.Code, u.period)
	}
}

func TestGetUsage_InvalidPeriod(t *testing.T) {
	h := newTestRouter(&mockAnswerer{}, &mockUsage{}, &mockHealth{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/usage?period=week", http.NoBody))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		code   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		h := newTestRouter(&mockAnswerer{}, &mockUsage{}, &mockHealth{status: tt.status}, "secret")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

		if rr.Code != tt.code {
			t.Errorf("%s: got %d, want %d", tt.status, rr.Code, tt.code)
		}
	}
}

func TestRouter_AuthAndRequestID(t *testing.T) {
	h := newTestRouter(&mockAnswerer{}, &mockUsage{}, &mockHealth{}, "secret")

	rr := postAnswer(t, h, `{"topic":"x"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrorCodeInternalError {
		t.Errorf("code %q, want %q", resp.Code, ErrorCodeInternalError)
	}
}
