package postly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

// Client submits scheduled posts to the Postly API.
type Client struct {
	baseURL    string
	apiKey     string
	workspaces string
	client     *http.Client
}

var _ ports.PostScheduler = (*Client)(nil)

// NewClient registers API credentials and the default workspace list.
func NewClient(cfg config.PostlyConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		workspaces: cfg.Workspaces,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Schedule posts the request to /v1/posts. A missing API key is an
// error here, not a silent skip, so the pipeline records the failure.
func (c *Client) Schedule(ctx context.Context, req domain.PostRequest) error {
	if c.apiKey == "" {
		return fmt.Errorf("postly api key is not configured")
	}

	workspaces := req.Workspaces
	if workspaces == "" {
		workspaces = c.workspaces
	}

	payload := map[string]any{
		"text": req.Caption,
		"media": []map[string]string{
			{"url": req.ImageURL, "type": "image"},
		},
		"one_off_schedule": req.ScheduledAt.Format(time.RFC3339),
	}
	if req.Platforms != "" {
		payload["target_platforms"] = req.Platforms
	}
	if workspaces != "" {
		payload["workspace"] = workspaces
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal post payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/posts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("X-API-KEY", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("schedule post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("postly error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	return nil
}
