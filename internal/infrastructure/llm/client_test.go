package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itmedclk/HealthNews/internal/config"
)

func TestConfigured(t *testing.T) {
	t.Parallel()

	full := NewClient(config.LLMConfig{BaseURL: "https://api.example.com", Model: "m", APIKey: "k"})
	if !full.Configured() {
		t.Fatalf("complete config should report configured")
	}

	for name, cfg := range map[string]config.LLMConfig{
		"no key":   {BaseURL: "https://api.example.com", Model: "m"},
		"no url":   {Model: "m", APIKey: "k"},
		"no model": {BaseURL: "https://api.example.com", APIKey: "k"},
	} {
		if NewClient(cfg).Configured() {
			t.Fatalf("%s should not report configured", name)
		}
	}
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	t.Parallel()

	var request map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&request)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  HARDBLOCK=no;REASON=clean  "}}]}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.LLMConfig{BaseURL: server.URL, Model: "test-model", APIKey: "k"})
	reply, err := client.Complete(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "HARDBLOCK=no;REASON=clean" {
		t.Fatalf("reply should be trimmed, got %q", reply)
	}
	if request["model"] != "test-model" {
		t.Fatalf("model not sent: %v", request["model"])
	}
}

func TestCompleteErrors(t *testing.T) {
	t.Parallel()

	misconfigured := NewClient(config.LLMConfig{})
	if _, err := misconfigured.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("misconfigured client must error")
	}

	badStatus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(badStatus.Close)
	client := NewClient(config.LLMConfig{BaseURL: badStatus.URL, Model: "m", APIKey: "k"})
	if _, err := client.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("non-2xx must error")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(empty.Close)
	client = NewClient(config.LLMConfig{BaseURL: empty.URL, Model: "m", APIKey: "k"})
	if _, err := client.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("empty choices must error")
	}
}
