package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterCompletionMetrics()
	os.Exit(m.Run())
}

// chatResponse mirrors the OpenAI-compatible chat completion response.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func newChatResponse(content string) chatResponse {
	resp := chatResponse{ID: "cmpl-1", Object: "chat.completion", Model: "test-model"}
	resp.Choices = make([]struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	}, 1)
	resp.Choices[0].Message.Role = "assistant"
	resp.Choices[0].Message.Content = content
	resp.Choices[0].FinishReason = "stop"
	resp.Usage.PromptTokens = 12
	resp.Usage.CompletionTokens = 5
	resp.Usage.TotalTokens = 17
	return resp
}

func newTestCompleter(url string, headers map[string]string) *Completer {
	return NewCompleter(&Config{
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "test-model",
		Provider: "test",
		Headers:  headers,
		Logger:   zap.NewNop(),
	})
}

func TestCompleter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(newChatResponse("hi there"))
	}))
	defer server.Close()

	res, err := newTestCompleter(server.URL, nil).Complete(context.Background(),
		domain.CompletionRequest{System: "be brief", User: "hello"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "hi there" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.PromptTokens != 12 || res.CompletionTokens != 5 || res.TotalTokens != 17 {
		t.Errorf("unexpected usage: %+v", res)
	}
}

func TestCompleter_OmitsEmptySystem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []json.RawMessage `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 {
			t.Errorf("expected 1 message, got %d", len(req.Messages))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(newChatResponse("ok"))
	}))
	defer server.Close()

	if _, err := newTestCompleter(server.URL, nil).Complete(context.Background(),
		domain.CompletionRequest{User: "hello"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
}

func TestCompleter_RoutingHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("HTTP-Referer"); got != "http://localhost:3000" {
			t.Errorf("HTTP-Referer = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "BSHRPipeline" {
			t.Errorf("X-Title = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(newChatResponse("ok"))
	}))
	defer server.Close()

	c := newTestCompleter(server.URL, map[string]string{
		"HTTP-Referer": "http://localhost:3000",
		"X-Title":      "BSHRPipeline",
	})
	if _, err := c.Complete(context.Background(), domain.CompletionRequest{User: "hello"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
}

func TestCompleter_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := newChatResponse("")
		resp.Choices = nil
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL, nil).Complete(context.Background(), domain.CompletionRequest{User: "hello"})
	if !errors.Is(err, domain.ErrMalformedCompletion) {
		t.Fatalf("expected ErrMalformedCompletion, got %v", err)
	}
}

func TestCompleter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		want   error
	}{
		{
			name:   "429 is rate limited",
			status: http.StatusTooManyRequests,
			body: map[string]any{"error": map[string]any{
				"message": "slow down", "type": "requests",
			}},
			want: domain.ErrRateLimited,
		},
		{
			name:   "rate_limit_exceeded code",
			status: http.StatusBadRequest,
			body: map[string]any{"error": map[string]any{
				"message": "quota", "type": "requests", "code": "rate_limit_exceeded",
			}},
			want: domain.ErrRateLimited,
		},
		{
			name:   "500 is provider error",
			status: http.StatusInternalServerError,
			body: map[string]any{"error": map[string]any{
				"message": "boom", "type": "server_error",
			}},
			want: domain.ErrProviderError,
		},
		{
			name:   "401 is provider error",
			status: http.StatusUnauthorized,
			body: map[string]any{"error": map[string]any{
				"message": "bad key", "type": "invalid_request_error",
			}},
			want: domain.ErrProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			_, err := newTestCompleter(server.URL, nil).Complete(context.Background(),
				domain.CompletionRequest{User: "hello"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCompleter_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	if err := newTestCompleter(server.URL, nil).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"nope"}`)); got != "nope" {
		t.Errorf("detail = %q", got)
	}
	if got := extractDetail([]byte(`{"error":{"message":"bad"}}`)); got != "bad" {
		t.Errorf("error.message = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
