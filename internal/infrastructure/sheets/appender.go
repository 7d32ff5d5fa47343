package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

const defaultEndpoint = "https://sheets.googleapis.com/v4/spreadsheets"

// Appender mirrors outcome rows to a Google Sheet. It is strictly
// best-effort: every failure is logged at debug level and swallowed,
// never surfaced to the pipeline.
type Appender struct {
	cfg      config.SheetsConfig
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.SheetAppender = (*Appender)(nil)

// NewAppender wires sheet credentials; a zero config disables appends.
func NewAppender(cfg config.SheetsConfig, logger *slog.Logger) *Appender {
	return &Appender{
		cfg:      cfg,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Append writes one outcome row. No error return: the contract is
// "may silently fail".
func (a *Appender) Append(ctx context.Context, record domain.PostRecord) {
	if a.cfg.SheetID == "" || a.cfg.Token == "" {
		return
	}

	row := []any{
		time.Now().UTC().Format(time.RFC3339),
		record.RunID,
		record.BrandName,
		record.ArticleTitle,
		record.ArticleURL,
		record.ProductName,
		record.ImageURL,
		record.Caption,
		string(record.Status),
		record.Reason,
	}

	body, err := json.Marshal(map[string]any{"values": [][]any{row}})
	if err != nil {
		a.debug("sheet payload marshal failed", "error", err)
		return
	}

	url := fmt.Sprintf("%s/%s/values/Sheet1!A1:append?valueInputOption=RAW", a.endpoint, a.cfg.SheetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		a.debug("sheet request build failed", "error", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.debug("sheet append failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		a.debug("sheet append rejected", "status", resp.Status)
	}
}

func (a *Appender) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
