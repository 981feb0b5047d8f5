package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		payload := map[string]any{
			"id":    "cmpl-1",
			"model": "demo-model",
			"choices": []any{
				map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func userMessages() []Message {
	return []Message{
		{Role: RoleSystem, Content: "你是日记助手"},
		{Role: RoleUser, Content: "今天很好"},
	}
}

func TestClientComplete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		completionHandler(t, "  做得不错  ")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/", Model: "demo-model"})
	resp, err := client.Complete(context.Background(), Request{Messages: userMessages(), Temperature: 1.5, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "做得不错" {
		t.Fatalf("content = %q", resp.Content)
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 5 || resp.Usage.TotalTokens != 17 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if resp.FinishReason != "stop" {
		t.Fatalf("finish reason = %q", resp.FinishReason)
	}
	if body["model"] != "demo-model" {
		t.Fatalf("request model = %v", body["model"])
	}
	if msgs, ok := body["messages"].([]any); !ok || len(msgs) != 2 {
		t.Fatalf("request messages = %v", body["messages"])
	}
}

func TestClientCompleteClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Class
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"auth"}}`, ClassPermanent},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid_request_error"}}`, ClassPermanent},
		{"unprocessable", http.StatusUnprocessableEntity, `{"error":{"message":"bad","type":"invalid_request_error"}}`, ClassPermanent},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, ClassTransient},
		{"unavailable plain body", http.StatusServiceUnavailable, `upstream down`, ClassTransient},
		{"request timeout", http.StatusRequestTimeout, ``, ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
			_, err := client.Complete(context.Background(), Request{Messages: userMessages()})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Classify(err); got != tt.want {
				t.Fatalf("Classify = %s, want %s (err=%v)", got, tt.want, err)
			}
			if got := StatusCode(err); got != tt.status {
				t.Fatalf("StatusCode = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestClientCompleteEmptyContentIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), Request{Messages: userMessages()})
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("expected transient, got %s", Classify(err))
	}
}

func TestClientCompleteMalformedBodyIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), Request{Messages: userMessages()})
	if err == nil || !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClientCompleteNetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: baseURL})
	_, err := client.Complete(context.Background(), Request{Messages: userMessages()})
	if err == nil || !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClientCompleteCancelledContextIsPermanent(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "unused"))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	_, err := client.Complete(ctx, Request{Messages: userMessages()})
	if err == nil || IsTransient(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestClientCompleteRejectsInvalidRequestsWithoutSending(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	tests := []struct {
		name   string
		apiKey string
		msgs   []Message
	}{
		{"no messages", "test", nil},
		{"assistant last", "test", []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}},
		{"unknown role", "test", []Message{{Role: "tool", Content: "x"}}},
		{"missing api key", "", userMessages()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(Config{APIKey: tt.apiKey, BaseURL: server.URL})
			_, err := client.Complete(context.Background(), Request{Messages: tt.msgs})
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if IsTransient(err) {
				t.Fatal("expected permanent classification")
			}
		})
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no requests, got %d", hits.Load())
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	if client.Model() != "deepseek-reasoner" {
		t.Fatalf("model = %q", client.Model())
	}
	if client.cfg.BaseURL != "https://api.deepseek.com" {
		t.Fatalf("base url = %q", client.cfg.BaseURL)
	}
	if client.httpClient.Timeout != DefaultHTTPTimeout() {
		t.Fatalf("timeout = %s", client.httpClient.Timeout)
	}
}
