package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Model != "qwen2.5:7b" || req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "hamstring") {
			t.Errorf("prompt not forwarded: %+v", req.Messages)
		}
		w.Write([]byte(`{"message": {"content": "{\"confidence\": 0.9}"}}`))
	}))
	defer server.Close()

	client := NewOllamaClient("qwen2.5:7b", server.URL, 5*time.Second)
	response, err := client.Ask(context.Background(), "Classify this hamstring report.", 512)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response != `{"confidence": 0.9}` {
		t.Errorf("unexpected response %q", response)
	}
}

func TestOllamaAskServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllamaClient("qwen2.5:7b", server.URL, 5*time.Second)
	if _, err := client.Ask(context.Background(), "prompt", 512); err == nil {
		t.Error("expected an error on HTTP 500")
	}
}

func TestOllamaIsConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models": [{"name": "qwen2.5:7b"}]}`))
	}))
	defer server.Close()

	if !NewOllamaClient("qwen2.5:7b", server.URL, 5*time.Second).IsConfigured() {
		t.Error("listed model should be configured")
	}
	if NewOllamaClient("llama3:8b", server.URL, 5*time.Second).IsConfigured() {
		t.Error("unlisted model should not be configured")
	}
}

func TestOpenAIIsConfigured(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	if NewOpenAIClient("gpt-4o-mini", "TEST_OPENAI_KEY", time.Second).IsConfigured() {
		t.Error("missing key should not be configured")
	}

	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	if !NewOpenAIClient("gpt-4o-mini", "TEST_OPENAI_KEY", time.Second).IsConfigured() {
		t.Error("present key should be configured")
	}
}
