package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
)

type chatRequestBody struct {
	Model          string `json:"model"`
	MaxTokens      int    `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, content string, seen *chatRequestBody) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-llm",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestChat(baseURL string) *Chat {
	return NewChat(&ChatConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Model:     "test-llm",
		MaxTokens: 512,
		Logger:    zap.NewNop(),
	})
}

func TestChat_CompleteJSON(t *testing.T) {
	var seen chatRequestBody
	srv := chatServer(t, `{"description":"token"}`, &seen)
	c := newTestChat(srv.URL)

	res, err := c.CompleteJSON(context.Background(), domain.ChatRequest{
		Purpose: "classify",
		System:  "you are an auditor",
		User:    "contract A {}",
	})
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if res.Content != `{"description":"token"}` {
		t.Errorf("content = %q", res.Content)
	}
	if res.PromptTokens != 120 || res.CompletionTokens != 30 || res.TotalTokens != 150 {
		t.Errorf("usage = %+v", res)
	}
	if seen.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %q, expected json_object", seen.ResponseFormat.Type)
	}
	if seen.MaxTokens != 512 {
		t.Errorf("max_tokens = %d", seen.MaxTokens)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" || seen.Messages[1].Content != "contract A {}" {
		t.Errorf("unexpected messages: %+v", seen.Messages)
	}
}

func TestChat_RequestOverridesMaxTokens(t *testing.T) {
	var seen chatRequestBody
	srv := chatServer(t, `{}`, &seen)
	c := newTestChat(srv.URL)

	if _, err := c.CompleteJSON(context.Background(), domain.ChatRequest{User: "x", MaxTokens: 64}); err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if seen.MaxTokens != 64 {
		t.Errorf("max_tokens = %d, expected 64", seen.MaxTokens)
	}
}

func TestChat_EmptyContent(t *testing.T) {
	srv := chatServer(t, "", nil)
	c := newTestChat(srv.URL)

	_, err := c.CompleteJSON(context.Background(), domain.ChatRequest{User: "x"})
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestChat_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()
	c := newTestChat(srv.URL)

	_, err := c.CompleteJSON(context.Background(), domain.ChatRequest{User: "x"})
	if !errors.Is(err, domain.ErrRateLimited) || !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected rate limited provider error, got %v", err)
	}
}

func TestChat_LimiterHonorsContext(t *testing.T) {
	c := NewChat(&ChatConfig{
		APIKey:            "test-key",
		BaseURL:           "http://unused",
		Model:             "test-llm",
		RequestsPerSecond: 0.001,
		Burst:             1,
		Logger:            zap.NewNop(),
	})
	// drain the single token
	c.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.CompleteJSON(ctx, domain.ChatRequest{User: "x"}); err == nil {
		t.Fatal("expected limiter error on cancelled context")
	}
}
