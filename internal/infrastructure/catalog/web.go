package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

// WebLoader scrapes a storefront goods-list page into a product
// catalog, caching the result as JSON so the site is hit at most once
// per TTL window.
type WebLoader struct {
	cfg    config.CatalogConfig
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.ProductLoader = (*WebLoader)(nil)

// NewWebLoader wires an HTTP client; client may be nil.
func NewWebLoader(cfg config.CatalogConfig, client *http.Client, logger *slog.Logger) *WebLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebLoader{cfg: cfg, client: client, logger: logger, now: time.Now}
}

// Name identifies the loader inside the registry.
func (l *WebLoader) Name() string {
	return "web"
}

type webCache struct {
	FetchedAt time.Time        `json:"fetched_at"`
	PageURL   string           `json:"page_url"`
	Products  []domain.Product `json:"products"`
}

// Load returns the scraped catalog, serving from cache while it is
// fresh. ref overrides the configured page URL when non-empty.
func (l *WebLoader) Load(ctx context.Context, ref string) ([]domain.Product, error) {
	pageURL := ref
	if pageURL == "" {
		pageURL = l.cfg.WebURL
	}
	if pageURL == "" {
		return nil, fmt.Errorf("no catalog page url configured")
	}

	if cached := l.fromCache(pageURL); cached != nil {
		return cached, nil
	}

	products, err := l.scrape(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	l.saveCache(pageURL, products)
	return products, nil
}

func (l *WebLoader) fromCache(pageURL string) []domain.Product {
	if l.cfg.CachePath == "" || l.cfg.CacheTTLDays <= 0 {
		return nil
	}
	raw, err := os.ReadFile(l.cfg.CachePath)
	if err != nil {
		return nil
	}
	var cache webCache
	if err := json.Unmarshal(raw, &cache); err != nil {
		return nil
	}
	if cache.PageURL != pageURL {
		return nil
	}
	ttl := time.Duration(l.cfg.CacheTTLDays) * 24 * time.Hour
	if l.now().Sub(cache.FetchedAt) > ttl {
		return nil
	}
	l.debug("catalog served from cache", "path", l.cfg.CachePath, "products", len(cache.Products))
	return cache.Products
}

func (l *WebLoader) saveCache(pageURL string, products []domain.Product) {
	if l.cfg.CachePath == "" {
		return
	}
	if dir := filepath.Dir(l.cfg.CachePath); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	raw, err := json.MarshalIndent(webCache{
		FetchedAt: l.now().UTC(),
		PageURL:   pageURL,
		Products:  products,
	}, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(l.cfg.CachePath, raw, 0o644); err != nil {
		l.warn("cannot write catalog cache", "path", l.cfg.CachePath, "error", err)
	}
}

func (l *WebLoader) scrape(ctx context.Context, pageURL string) ([]domain.Product, error) {
	doc, err := l.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url %s: %w", pageURL, err)
	}

	var products []domain.Product
	doc.Find(".goods-list .goods-item, ul.goods_list > li").Each(func(i int, item *goquery.Selection) {
		name := strings.TrimSpace(item.Find(".goods-name, .name").First().Text())
		if name == "" {
			return
		}

		link := item.Find("a").First()
		href, _ := link.Attr("href")
		productURL := resolveRef(base, href)

		img := item.Find("img").First()
		src, _ := img.Attr("src")
		imageURL := resolveRef(base, src)

		image := domain.ImageLink{Status: domain.ImageUnresolved}
		if imageURL != "" {
			image = domain.ImageLink{URL: imageURL, Status: domain.ImageResolved}
		}

		products = append(products, domain.Product{
			Name:        name,
			URL:         productURL,
			Image:       image,
			Description: strings.TrimSpace(item.Find(".goods-desc, .desc").First().Text()),
			Category:    strings.TrimSpace(item.Find(".goods-category, .category").First().Text()),
		})
	})

	l.debug("catalog scraped", "url", pageURL, "products", len(products))
	return products, nil
}

func (l *WebLoader) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "HealthNews/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

func (l *WebLoader) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

func (l *WebLoader) warn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}
