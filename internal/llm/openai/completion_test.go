//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
)

func writeChatResponse(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message":       map[string]string{"content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("Failed to encode response: %v", err)
	}
}

func TestCompletionProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.ResponseFormat != nil {
			t.Error("expected no response_format for plain request")
		}

		writeChatResponse(t, w, "Hello!")
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	provider := NewCompletionProvider("test-key", WithCompletionClient(client))

	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "user", Content: "Hi there"},
		},
	}

	resp, err := provider.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Content != "Hello!" {
		t.Errorf("expected 'Hello!', got %s", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("expected 'stop', got %s", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestCompletionProvider_Complete_JSONMode(t *testing.T) {
	var raw map[string]interface{}
	var received chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_ = json.Unmarshal(body, &raw)
		_ = json.Unmarshal(body, &received)

		writeChatResponse(t, w, `{"is_valid": true}`)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	provider := NewCompletionProvider("test-key", WithCompletionClient(client))

	req := llm.CompletionRequest{
		SystemPrompt: "You are a validator.",
		Messages:     []llm.Message{llm.UserMessage("question")},
		Temperature:  0,
		JSON:         true,
	}

	if _, err := provider.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if received.ResponseFormat == nil || received.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", received.ResponseFormat)
	}
	if temp, ok := raw["temperature"]; !ok || temp != float64(0) {
		t.Errorf("expected temperature 0 to be sent, got %v", raw["temperature"])
	}
	if len(received.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(received.Messages))
	}
	if received.Messages[0].Role != "system" {
		t.Errorf("expected first message role 'system', got %s", received.Messages[0].Role)
	}
}

func TestCompletionProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	provider := NewCompletionProvider("test-key", WithCompletionClient(client))

	_, err := provider.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{llm.UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *llm.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *llm.Error, got %T", err)
	}
	if apiErr.Code != llm.ErrCodeRateLimit {
		t.Errorf("expected rate limit code, got %s", apiErr.Code)
	}
	if !llm.IsRetryable(err) {
		t.Error("expected rate limit to be retryable")
	}
}

func TestCompletionProvider_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	provider := NewCompletionProvider("test-key", WithCompletionClient(client))

	_, err := provider.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{llm.UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompletionProvider_ModelName(t *testing.T) {
	provider := NewCompletionProvider("test-key")
	if provider.ModelName() != defaultChatModel {
		t.Errorf("expected %s, got %s", defaultChatModel, provider.ModelName())
	}

	provider = NewCompletionProvider("test-key", WithCompletionModel("gpt-4"))
	if provider.ModelName() != "gpt-4" {
		t.Errorf("expected gpt-4, got %s", provider.ModelName())
	}
}

func TestCompletionProvider_Options(t *testing.T) {
	provider := NewCompletionProvider(
		"test-key",
		WithMaxTokens(1000),
		WithTemperature(0.5),
	)

	if provider.maxTokens != 1000 {
		t.Errorf("expected maxTokens 1000, got %d", provider.maxTokens)
	}
	if provider.temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %f", provider.temperature)
	}
}
