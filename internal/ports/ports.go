package ports

import (
	"context"
	"time"

	"github.com/itmedclk/HealthNews/internal/domain"
)

// EntrySource pulls deduplicated, newest-first news entries from the
// configured feeds.
type EntrySource interface {
	Fetch(ctx context.Context, feeds []string) ([]domain.NewsEntry, error)
}

// ProductLoader loads a brand's product catalog from a concrete
// source (CSV file, storefront scrape, ...).
type ProductLoader interface {
	Name() string
	Load(ctx context.Context, ref string) ([]domain.Product, error)
}

// BrandLoader loads the brand list the orchestrator iterates over.
type BrandLoader interface {
	LoadBrands(ctx context.Context, ref string) ([]domain.Brand, error)
}

// ImageResolver turns a stored image reference into a postable link.
// Resolution failures are reported through ImageLink.Status, not as
// errors, so the catalog still loads without image credentials.
type ImageResolver interface {
	Resolve(ctx context.Context, imagePath string) domain.ImageLink
}

// ChatCompleter sends one prompt to a generative-text API and returns
// the raw completion. Configured reports whether credentials exist so
// safety callers can fail closed without a network round trip.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// SafetyFilter decides whether an entry may be used at all; reason is
// non-empty exactly when allowed is false.
type SafetyFilter interface {
	Evaluate(ctx context.Context, entry domain.NewsEntry, catalog []domain.Product) (allowed bool, reason string)
}

// ProductMatcher picks the best catalog product for an entry. A nil
// Product with a non-zero Score means "best candidate was below
// threshold".
type ProductMatcher interface {
	Select(ctx context.Context, entry domain.NewsEntry, catalog []domain.Product) domain.MatchResult
}

// CaptionWriter produces the post caption for an entry/product pair.
type CaptionWriter interface {
	Write(ctx context.Context, entry domain.NewsEntry, product domain.Product) (string, error)
}

// PostScheduler submits a post to the publishing API. Any non-2xx or
// transport fault comes back as an error for the caller to record.
type PostScheduler interface {
	Schedule(ctx context.Context, req domain.PostRequest) error
}

// HistoryStore is the durable state behind idempotence and
// repeat-avoidance decisions.
type HistoryStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertBrandTopics(ctx context.Context, topics domain.BrandTopics) error
	ArticleSeen(ctx context.Context, brand, title, url string) (bool, error)
	RecordCheck(ctx context.Context, check domain.ArticleCheck) error
	AppendPost(ctx context.Context, record domain.PostRecord) error
	PostedBetween(ctx context.Context, brand string, from, to time.Time) (bool, error)
	ScheduledBetween(ctx context.Context, brand string, from, to time.Time) (bool, error)
	LastProductNames(ctx context.Context, brand string, n int) ([]string, error)
}

// SheetAppender mirrors outcome rows to an external spreadsheet.
// Appends are fire-and-forget: implementations log and swallow their
// own failures.
type SheetAppender interface {
	Append(ctx context.Context, record domain.PostRecord)
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
