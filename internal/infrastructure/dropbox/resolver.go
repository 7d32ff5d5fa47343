package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

const defaultAPIBase = "https://api.dropboxapi.com"

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Resolver turns Dropbox folder paths into direct-download image
// links, rotating through the folder's images across runs so repeated
// posts for the same product vary their artwork. Resolution problems
// surface as ImageLink statuses, never as errors.
type Resolver struct {
	cfg       config.DropboxConfig
	apiBase   string
	statePath string
	client    *http.Client
	logger    *slog.Logger

	mu           sync.Mutex
	cachedToken  string
	tokenExpires time.Time
}

var _ ports.ImageResolver = (*Resolver)(nil)

// NewResolver wires Dropbox credentials with the rotation-state file.
func NewResolver(cfg config.DropboxConfig, statePath string, logger *slog.Logger) *Resolver {
	return &Resolver{
		cfg:       cfg,
		apiBase:   defaultAPIBase,
		statePath: statePath,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// Resolve picks the next image in the folder's rotation and returns
// its shared link.
func (r *Resolver) Resolve(ctx context.Context, imagePath string) domain.ImageLink {
	token := r.accessToken(ctx)
	if token == "" {
		return domain.ImageLink{Status: domain.ImageMissingToken}
	}
	if imagePath == "" {
		return domain.ImageLink{Status: domain.ImageMissingPath}
	}

	entries, err := r.listFolder(ctx, token, imagePath)
	if err != nil {
		r.warn("dropbox list_folder failed", "path", imagePath, "error", err)
		return domain.ImageLink{Status: domain.ImageNoFiles}
	}
	if len(entries) == 0 {
		return domain.ImageLink{Status: domain.ImageNoFiles}
	}

	images := make([]folderEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Tag == "file" && isImageFile(entry.Name) {
			images = append(images, entry)
		}
	}
	if len(images) == 0 {
		return domain.ImageLink{Status: domain.ImageNoImageFiles}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })

	state := r.loadRotationState()
	next := (state[imagePath] + 1) % len(images)
	if _, ok := state[imagePath]; !ok {
		next = 0
	}
	chosen := images[next]

	path := chosen.PathLower
	if path == "" {
		path = chosen.PathDisplay
	}
	link, err := r.sharedLink(ctx, token, path)
	if err != nil || link == "" {
		r.warn("dropbox shared link failed", "path", path, "error", err)
		return domain.ImageLink{Status: domain.ImageLinkFailed}
	}

	state[imagePath] = next
	r.saveRotationState(state)

	return domain.ImageLink{
		URL:           link,
		Status:        domain.ImageResolved,
		Name:          chosen.Name,
		RotationIndex: next + 1,
		RotationTotal: len(images),
	}
}

type folderEntry struct {
	Tag         string `json:".tag"`
	Name        string `json:"name"`
	PathLower   string `json:"path_lower"`
	PathDisplay string `json:"path_display"`
}

func (r *Resolver) listFolder(ctx context.Context, token, folderPath string) ([]folderEntry, error) {
	var parsed struct {
		Entries []folderEntry `json:"entries"`
	}
	err := r.post(ctx, token, "/2/files/list_folder", map[string]any{"path": folderPath}, &parsed)
	if err != nil {
		return nil, err
	}
	return parsed.Entries, nil
}

// sharedLink creates (or, on 409 conflict, looks up) a shared link
// and rewrites it to a direct-download URL.
func (r *Resolver) sharedLink(ctx context.Context, token, path string) (string, error) {
	var created struct {
		URL string `json:"url"`
	}
	err := r.post(ctx, token, "/2/sharing/create_shared_link_with_settings", map[string]any{"path": path}, &created)
	shared := created.URL

	if err != nil {
		if !isConflict(err) {
			return "", err
		}
		var listed struct {
			Links []struct {
				URL string `json:"url"`
			} `json:"links"`
		}
		listErr := r.post(ctx, token, "/2/sharing/list_shared_links",
			map[string]any{"path": path, "direct_only": true}, &listed)
		if listErr != nil {
			return "", listErr
		}
		if len(listed.Links) == 0 {
			return "", nil
		}
		shared = listed.Links[0].URL
	}

	if shared == "" {
		return "", nil
	}
	shared = strings.Replace(shared, "www.dropbox.com", "dl.dropboxusercontent.com", 1)
	shared = strings.Replace(shared, "?dl=0", "", 1)
	return shared, nil
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("dropbox api status %d: %s", e.status, e.body)
}

func isConflict(err error) bool {
	if api, ok := err.(*apiError); ok {
		return api.status == http.StatusConflict
	}
	return false
}

func (r *Resolver) post(ctx context.Context, token, path string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// accessToken returns the static token when configured, otherwise
// exchanges the refresh token, caching the result until shortly
// before expiry.
func (r *Resolver) accessToken(ctx context.Context) string {
	if r.cfg.AccessToken != "" {
		return r.cfg.AccessToken
	}
	if r.cfg.RefreshToken == "" || r.cfg.ClientID == "" || r.cfg.ClientSecret == "" {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cachedToken != "" && time.Now().Before(r.tokenExpires) {
		return r.cachedToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", r.cfg.RefreshToken)
	form.Set("client_id", r.cfg.ClientID)
	form.Set("client_secret", r.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiBase+"/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		r.warn("dropbox token refresh failed", "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		r.warn("dropbox token refresh rejected", "status", resp.Status, "body", strings.TrimSpace(string(raw)))
		return ""
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ""
	}

	r.cachedToken = parsed.AccessToken
	r.tokenExpires = time.Now().Add(time.Duration(parsed.ExpiresIn-60) * time.Second)
	return r.cachedToken
}

func (r *Resolver) loadRotationState() map[string]int {
	state := map[string]int{}
	if r.statePath == "" {
		return state
	}
	raw, err := os.ReadFile(r.statePath)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return map[string]int{}
	}
	return state
}

func (r *Resolver) saveRotationState(state map[string]int) {
	if r.statePath == "" {
		return
	}
	if dir := filepath.Dir(r.statePath); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(r.statePath, raw, 0o644); err != nil {
		r.warn("cannot persist rotation state", "path", r.statePath, "error", err)
	}
}

func isImageFile(name string) bool {
	lowered := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	return false
}

func (r *Resolver) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
