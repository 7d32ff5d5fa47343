package rss

import (
	"context"
	"log/slog"
	"sort"

	"github.com/mmcdole/gofeed"

	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

// Source implements ports.EntrySource over RSS/Atom feeds.
type Source struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.EntrySource = (*Source)(nil)

// NewSource wires a feed parser; parser may be nil.
func NewSource(parser *gofeed.Parser, logger *slog.Logger) *Source {
	if parser == nil {
		parser = gofeed.NewParser()
	}
	return &Source{parser: parser, logger: logger}
}

// Fetch downloads every feed, normalizes items into NewsEntry values,
// deduplicates by (title, url), and sorts newest-first with undated
// entries last. A feed that fails to download or parse is skipped, it
// never fails the whole fetch.
func (s *Source) Fetch(ctx context.Context, feeds []string) ([]domain.NewsEntry, error) {
	var entries []domain.NewsEntry
	for _, feedURL := range feeds {
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			s.warn("feed fetch failed", "feed", feedURL, "error", err)
			continue
		}
		for _, item := range feed.Items {
			entry := domain.NewsEntry{
				Source:  feedURL,
				Title:   item.Title,
				URL:     item.Link,
				Summary: item.Description,
			}
			if item.PublishedParsed != nil {
				entry.Published = *item.PublishedParsed
			}
			entries = append(entries, entry)
		}
	}

	entries = dedupe(entries)
	sortNewestFirst(entries)
	s.debug("rss ingest done", "feeds", len(feeds), "entries", len(entries))
	return entries, nil
}

func dedupe(entries []domain.NewsEntry) []domain.NewsEntry {
	type key struct{ title, url string }
	seen := map[key]struct{}{}
	unique := entries[:0]
	for _, entry := range entries {
		title, url := entry.Key()
		k := key{title, url}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, entry)
	}
	return unique
}

// sortNewestFirst orders entries by publish time descending; entries
// without a publish timestamp sort as oldest.
func sortNewestFirst(entries []domain.NewsEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Published.After(entries[j].Published)
	})
}

func (s *Source) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
