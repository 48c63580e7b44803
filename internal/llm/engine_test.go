package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestModelName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/models/qwen2.5-1.5b-q4_k_m.gguf", "qwen2.5-1.5b-q4_k_m"},
		{"qwen3-4b-q4_k_m.gguf", "qwen3-4b-q4_k_m"},
		{"/models/plain", "plain"},
	}
	for _, tt := range tests {
		if got := ModelName(tt.path); got != tt.want {
			t.Errorf("ModelName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNewRejectsEmptyModel(t *testing.T) {
	if _, err := New(Config{Provider: "llamacpp"}); err == nil {
		t.Fatal("New() should fail without a model path")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "fakecloud", ModelPath: "m.gguf"})
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Fatalf("New() error = %v, want unsupported provider", err)
	}
}

// chatServer emulates an OpenAI-compatible chat completions endpoint.
type chatServer struct {
	mu      sync.Mutex
	reply   string
	request map[string]any
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.request = body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   body["model"],
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": s.reply},
		}},
	})
}

func TestCompleteLlamaCpp(t *testing.T) {
	cs := &chatServer{reply: "帮我写一下这个"}
	srv := httptest.NewServer(cs)
	defer srv.Close()

	e, err := New(Config{
		Provider:    "llamacpp",
		ModelPath:   "/models/qwen2.5-1.5b-q4_k_m.gguf",
		BaseURL:     srv.URL + "/v1",
		Temperature: 0.2,
		MaxTokens:   64,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := e.Complete(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "帮我写一下这个" {
		t.Errorf("Complete() = %q", got)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.request["model"] != "qwen2.5-1.5b-q4_k_m" {
		t.Errorf("request model = %v", cs.request["model"])
	}
	msgs, _ := cs.request["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("request has %d messages, want 1", len(msgs))
	}
	msg, _ := msgs[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "prompt text" {
		t.Errorf("request message = %v", msg)
	}
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, err := New(Config{Provider: "llamacpp", ModelPath: "m.gguf", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := e.Complete(context.Background(), "x"); err == nil {
		t.Fatal("Complete() should fail on a server error")
	}
}
