package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/infrastructure/catalog"
	"github.com/itmedclk/HealthNews/internal/match"
	"github.com/itmedclk/HealthNews/internal/ports"
)

// PipelineDeps wires all collaborators into the daily posting run.
type PipelineDeps struct {
	Source  ports.EntrySource
	Brands  ports.BrandLoader
	Catalog ports.ProductLoader
	Store   ports.HistoryStore
	Safety  ports.SafetyFilter
	Matcher ports.ProductMatcher
	Caption ports.CaptionWriter
	Poster  ports.PostScheduler
	Sheets  ports.SheetAppender
	Logger  *slog.Logger
	Now     func() time.Time
}

// Pipeline runs the daily posting workflow: for every brand, walk the
// freshest news entries until one survives safety, matching, the
// repeat guard, and completeness checks, then schedule exactly one
// post. Brands are processed strictly sequentially and independently.
type Pipeline struct {
	cfg     config.Config
	source  ports.EntrySource
	brands  ports.BrandLoader
	catalog ports.ProductLoader
	store   ports.HistoryStore
	safety  ports.SafetyFilter
	matcher ports.ProductMatcher
	caption ports.CaptionWriter
	poster  ports.PostScheduler
	sheets  ports.SheetAppender
	logger  *slog.Logger
	now     func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(cfg config.Config, deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg:     cfg,
		source:  deps.Source,
		brands:  deps.Brands,
		catalog: deps.Catalog,
		store:   deps.Store,
		safety:  deps.Safety,
		matcher: deps.Matcher,
		caption: deps.Caption,
		poster:  deps.Poster,
		sheets:  deps.Sheets,
		logger:  deps.Logger,
		now:     now,
	}
}

// Run executes one full pass over all brands. Only an unreadable
// brand list fails the run; everything else is recorded per brand.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := p.log().With("run_id", runID)

	if err := p.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure store schema: %w", err)
	}

	brands, err := p.brands.LoadBrands(ctx, p.cfg.Catalog.BrandsCSV)
	if err != nil {
		return fmt.Errorf("load brands: %w", err)
	}
	if len(brands) == 0 {
		log.Error("brand list is empty")
		p.logBrandFailure(ctx, runID, "", "brand list is empty")
		return fmt.Errorf("brand list is empty")
	}

	for _, brand := range brands {
		p.runBrand(ctx, runID, brand, log.With("brand", brand.Name))
	}
	return nil
}

// runBrand isolates one brand's processing: a panic here is recorded
// as a failed outcome and must never reach the other brands.
func (p *Pipeline) runBrand(ctx context.Context, runID string, brand domain.Brand, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("brand processing panicked", "panic", r)
			p.logBrandFailure(ctx, runID, brand.Name, fmt.Sprintf("panic: %v", r))
		}
	}()

	now := p.now().In(p.cfg.Scheduler.Location())
	log.Info("processing brand", "now", now.Format(time.RFC3339))

	catalogRef := brand.CatalogRef
	if catalogRef == "" {
		catalogRef = p.cfg.Catalog.ProductCSV
	}
	products, err := p.catalog.Load(ctx, catalogRef)
	if err != nil {
		log.Error("catalog load failed", "ref", catalogRef, "error", err)
		p.logBrandFailure(ctx, runID, brand.Name, fmt.Sprintf("catalog load failed: %v", err))
		return
	}
	if len(products) == 0 {
		log.Warn("product catalog is empty", "ref", catalogRef)
		p.logBrandFailure(ctx, runID, brand.Name, fmt.Sprintf("product catalog empty for %s", brand.Name))
		return
	}

	topics := catalog.DeriveTopics(brand.Name, products)
	if err := p.store.UpsertBrandTopics(ctx, topics); err != nil {
		log.Warn("brand topic upsert failed", "error", err)
	}

	slot, err := daySlot(ctx, p.store, brand.Name, now, p.cfg.Scheduler.Hour, p.cfg.Scheduler.Minute)
	if err != nil {
		log.Error("day check failed", "error", err)
		p.logBrandFailure(ctx, runID, brand.Name, fmt.Sprintf("day check failed: %v", err))
		return
	}
	if slot.alreadyScheduled {
		log.Info("post already scheduled for tomorrow, nothing to do")
		return
	}

	feeds := brand.RSSSources
	if len(feeds) == 0 {
		feeds = p.cfg.Feeds
	}
	entries, err := p.source.Fetch(ctx, feeds)
	if err != nil {
		log.Error("rss ingest failed", "error", err)
		p.logBrandFailure(ctx, runID, brand.Name, fmt.Sprintf("rss ingest failed: %v", err))
		return
	}
	if len(entries) == 0 {
		log.Warn("no rss entries loaded", "feeds", len(feeds))
		p.logBrandFailure(ctx, runID, brand.Name, "no rss entries loaded")
		return
	}
	log.Info("scanning entries", "entries", len(entries), "target", slot.target.Format(time.RFC3339), "immediate", slot.immediate)

	var recent []string
	if p.cfg.Match.AvoidRepeat {
		recent, err = p.store.LastProductNames(ctx, brand.Name, p.cfg.Match.RepeatCount)
		if err != nil {
			log.Warn("recent product lookup failed", "error", err)
		}
	}

	if p.scanEntries(ctx, runID, brand, products, entries, recent, slot, now, log) {
		return
	}

	log.Warn("entry list exhausted without a post")
	p.logBrandFailure(ctx, runID, brand.Name, fmt.Sprintf("no valid articles found for %s", brand.Name))
}

// scanEntries walks the newest-first entry list and returns true once
// a post was scheduled.
func (p *Pipeline) scanEntries(ctx context.Context, runID string, brand domain.Brand,
	products []domain.Product, entries []domain.NewsEntry, recent []string,
	slot slotDecision, now time.Time, log *slog.Logger) bool {

	for _, entry := range entries {
		title, url := entry.Key()
		seen, err := p.store.ArticleSeen(ctx, brand.Name, title, url)
		if err != nil {
			log.Warn("article history lookup failed", "error", err)
		}
		if seen {
			log.Debug("entry already evaluated, skipping", "title", entry.Title)
			continue
		}

		entryLog := log.With("title", entry.Title)

		safe, reason := p.safety.Evaluate(ctx, entry, products)
		if !safe {
			entryLog.Info("safety filter rejected entry", "reason", reason)
			p.recordCheck(ctx, runID, brand, entry, nil, domain.StatusSkipped, reason)
			continue
		}

		result := p.matcher.Select(ctx, entry, products)
		if result.Product == nil {
			reason := fmt.Sprintf("no product match (score=%.2f)", result.Score)
			entryLog.Info("no product matched", "score", result.Score)
			p.recordCheck(ctx, runID, brand, entry, nil, domain.StatusSkipped, reason)
			continue
		}
		product := *result.Product
		entryLog.Info("product matched", "product", product.Name, "score", result.Score)

		// Repeat skips are deliberately not recorded: once the repeat
		// window moves, the entry must stay eligible.
		if p.cfg.Match.AvoidRepeat && match.IsRepeat(product.Name, recent) {
			entryLog.Info("product posted recently, skipping entry", "product", product.Name)
			continue
		}

		if !product.Image.Usable() {
			entryLog.Warn("product image not usable", "status", product.Image.Status)
			p.recordCheck(ctx, runID, brand, entry, &product, domain.StatusFailed, "missing product image URL")
			continue
		}

		workspaces := brand.Workspaces
		if workspaces == "" {
			workspaces = p.cfg.Postly.Workspaces
		}
		if brand.Platforms == "" || workspaces == "" {
			entryLog.Warn("brand posting targets incomplete")
			p.recordCheck(ctx, runID, brand, entry, &product, domain.StatusFailed, "missing target platforms or workspace ids")
			continue
		}

		captionText, err := p.caption.Write(ctx, entry, product)
		if err != nil {
			entryLog.Warn("caption generation failed", "error", err)
			p.recordCheck(ctx, runID, brand, entry, &product, domain.StatusFailed, fmt.Sprintf("caption generation failed: %v", err))
			continue
		}

		status := domain.StatusScheduled
		if !slot.target.After(now) {
			status = domain.StatusPosted
		}

		record := domain.PostRecord{
			RunID:         runID,
			BrandName:     brand.Name,
			ProductName:   product.Name,
			ArticleTitle:  entry.Title,
			ArticleURL:    entry.URL,
			ImageURL:      product.Image.URL,
			Caption:       captionText,
			ScheduledTime: slot.target,
			Status:        status,
		}
		if status == domain.StatusPosted {
			record.PostedTime = slot.target
		}

		err = p.poster.Schedule(ctx, domain.PostRequest{
			Caption:     captionText,
			ImageURL:    product.Image.URL,
			ScheduledAt: slot.target,
			Platforms:   brand.Platforms,
			Workspaces:  workspaces,
		})
		if err != nil {
			entryLog.Error("post scheduling failed", "error", err)
			record.Status = domain.StatusFailed
			record.Reason = err.Error()
			record.PostedTime = time.Time{}
			p.appendPost(ctx, record, log)
			p.recordCheck(ctx, runID, brand, entry, &product, domain.StatusFailed, err.Error())
			continue
		}

		p.appendPost(ctx, record, log)
		p.recordCheck(ctx, runID, brand, entry, &product, status, "")
		entryLog.Info("post submitted", "status", string(status), "scheduled_at", slot.target.Format(time.RFC3339))
		return true
	}
	return false
}

// recordCheck persists the article evaluation outcome and mirrors it
// to the spreadsheet log.
func (p *Pipeline) recordCheck(ctx context.Context, runID string, brand domain.Brand,
	entry domain.NewsEntry, product *domain.Product, status domain.PostStatus, reason string) {

	title, url := entry.Key()
	check := domain.ArticleCheck{
		BrandName: brand.Name,
		Title:     title,
		URL:       url,
		Status:    status,
		Reason:    reason,
		CheckedAt: p.now(),
	}
	if err := p.store.RecordCheck(ctx, check); err != nil {
		p.log().Warn("article check record failed", "brand", brand.Name, "error", err)
	}

	if p.sheets != nil {
		row := domain.PostRecord{
			RunID:        runID,
			BrandName:    brand.Name,
			ArticleTitle: entry.Title,
			ArticleURL:   entry.URL,
			Status:       status,
			Reason:       reason,
		}
		if product != nil {
			row.ProductName = product.Name
			row.ImageURL = product.Image.URL
		}
		p.sheets.Append(ctx, row)
	}
}

// logBrandFailure writes a terminal failed record for brand-level
// faults (empty catalog, exhausted scan, ingest errors).
func (p *Pipeline) logBrandFailure(ctx context.Context, runID, brand, reason string) {
	record := domain.PostRecord{
		RunID:     runID,
		BrandName: brand,
		Status:    domain.StatusFailed,
		Reason:    reason,
	}
	p.appendPost(ctx, record, p.log())
}

func (p *Pipeline) appendPost(ctx context.Context, record domain.PostRecord, log *slog.Logger) {
	if err := p.store.AppendPost(ctx, record); err != nil {
		log.Warn("post log append failed", "error", err)
	}
	if p.sheets != nil {
		p.sheets.Append(ctx, record)
	}
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
