package postly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
)

func testRequest() domain.PostRequest {
	return domain.PostRequest{
		Caption:     "educational caption",
		ImageURL:    "https://img.example.com/mag.jpg",
		ScheduledAt: time.Date(2026, time.March, 4, 5, 0, 0, 0, time.UTC),
		Platforms:   "facebook,instagram",
		Workspaces:  "ws1",
	}
}

func TestScheduleSendsPayload(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/posts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		apiKey = r.Header.Get("X-API-KEY")
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.PostlyConfig{BaseURL: server.URL, APIKey: "secret"})
	if err := client.Schedule(context.Background(), testRequest()); err != nil {
		t.Fatalf("Schedule error: %v", err)
	}

	if apiKey != "secret" {
		t.Fatalf("api key header not sent, got %q", apiKey)
	}
	if captured["text"] != "educational caption" {
		t.Fatalf("unexpected text: %v", captured["text"])
	}
	if captured["one_off_schedule"] != "2026-03-04T05:00:00Z" {
		t.Fatalf("unexpected schedule: %v", captured["one_off_schedule"])
	}
	if captured["target_platforms"] != "facebook,instagram" {
		t.Fatalf("unexpected platforms: %v", captured["target_platforms"])
	}
	if captured["workspace"] != "ws1" {
		t.Fatalf("unexpected workspace: %v", captured["workspace"])
	}

	media, ok := captured["media"].([]any)
	if !ok || len(media) != 1 {
		t.Fatalf("unexpected media: %v", captured["media"])
	}
	item := media[0].(map[string]any)
	if item["url"] != "https://img.example.com/mag.jpg" || item["type"] != "image" {
		t.Fatalf("unexpected media item: %v", item)
	}
}

func TestScheduleDefaultWorkspace(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.PostlyConfig{BaseURL: server.URL, APIKey: "secret", Workspaces: "default-ws"})
	req := testRequest()
	req.Workspaces = ""

	if err := client.Schedule(context.Background(), req); err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	if captured["workspace"] != "default-ws" {
		t.Fatalf("client default workspace should apply, got %v", captured["workspace"])
	}
}

func TestScheduleMissingAPIKey(t *testing.T) {
	t.Parallel()

	client := NewClient(config.PostlyConfig{BaseURL: "https://openapi.postly.ai"})
	if err := client.Schedule(context.Background(), testRequest()); err == nil {
		t.Fatalf("missing api key must error")
	}
}

func TestScheduleAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"workspace not found"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.PostlyConfig{BaseURL: server.URL, APIKey: "secret"})
	err := client.Schedule(context.Background(), testRequest())
	if err == nil {
		t.Fatalf("non-2xx must error")
	}
	if !strings.Contains(err.Error(), "workspace not found") {
		t.Fatalf("error should carry the response body, got %v", err)
	}
}
