package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing BaseURL")
	}
	cfg.BaseURL = "http://backend"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing APIKey")
	}
	cfg.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := (&Config{BaseURL: "http://backend///", APIKey: "key"}).WithDefaults()
	if cfg.BaseURL != "http://backend" {
		t.Fatalf("trailing slashes should be trimmed, got %q", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.Model == "" {
		t.Fatalf("expected default model")
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) Generator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gen, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return gen
}

func TestGenerateSuccess(t *testing.T) {
	gen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected message layout: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"model": "sommelier-1",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "try a malbec"}},
			},
			"usage": map[string]int{"prompt_tokens": 40, "completion_tokens": 120, "total_tokens": 160},
		})
	})

	resp, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "try a malbec" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 160 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
}

func TestGenerateIncludesConversationContext(t *testing.T) {
	gen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 3 {
			t.Errorf("expected 3 messages with context, got %d", len(req.Messages))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	})

	req := testRequest()
	req.ConversationContext = "User: any reds?\nAssistant: yes, several."
	if _, err := gen.Generate(context.Background(), req); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	gen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})

	_, err := gen.Generate(context.Background(), testRequest())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Kind != KindRateLimited || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected classification: %+v", apiErr)
	}
	if apiErr.RetryAfter != 12*time.Second {
		t.Fatalf("expected 12s retry hint, got %v", apiErr.RetryAfter)
	}
	if !apiErr.Retryable() {
		t.Fatalf("rate limiting must be retryable")
	}
}

func TestGenerateServerError(t *testing.T) {
	gen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := gen.Generate(context.Background(), testRequest())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindServer {
		t.Fatalf("expected server error classification, got %v", err)
	}
	if !apiErr.Retryable() {
		t.Fatalf("server errors must be retryable")
	}
}

func TestGenerateClientErrorNotRetryable(t *testing.T) {
	gen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown prompt", http.StatusBadRequest)
	})

	_, err := gen.Generate(context.Background(), testRequest())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindClient {
		t.Fatalf("expected client error classification, got %v", err)
	}
	if apiErr.Retryable() {
		t.Fatalf("client errors must not be retryable")
	}
}

func TestGenerateValidatesRequest(t *testing.T) {
	gen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("backend should not be reached for an invalid request")
	})

	_, err := gen.Generate(context.Background(), &GenerateRequest{Query: "no prompt"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindClient {
		t.Fatalf("expected client error for invalid request, got %v", err)
	}
}
