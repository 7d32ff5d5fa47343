package safety

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

const maxRelevanceProducts = 30

// Filter decides whether a news entry is safe to use for a brand.
// Three gates run in order and short-circuit on the first failure:
// a lexical hard-block list, a classifier hard-block check, and a
// classifier relevance check against the catalog. The filter is
// fail-closed: a missing credential or a classifier outage rejects
// the entry.
type Filter struct {
	cfg       config.SafetyConfig
	completer ports.ChatCompleter
	logger    *slog.Logger
}

// NewFilter wires topic configuration with the classifier backend.
func NewFilter(cfg config.SafetyConfig, completer ports.ChatCompleter, logger *slog.Logger) *Filter {
	return &Filter{cfg: cfg, completer: completer, logger: logger}
}

// Evaluate runs all gates on the entry against the brand catalog.
// The returned reason is empty only when allowed is true.
func (f *Filter) Evaluate(ctx context.Context, entry domain.NewsEntry, catalog []domain.Product) (bool, string) {
	text := entry.Text()

	if ok, reason := f.hardBlock(text); !ok {
		return false, reason
	}
	if ok, reason := f.classifierHardBlock(ctx, text); !ok {
		return false, reason
	}
	if ok, reason := f.relevance(ctx, text, catalog); !ok {
		return false, reason
	}
	return true, ""
}

// hardBlock is a case-insensitive substring scan over the configured
// topic list. No external calls; this gate alone can reject.
func (f *Filter) hardBlock(text string) (bool, string) {
	lowered := strings.ToLower(text)
	for _, topic := range f.cfg.HardBlockTopics {
		if strings.Contains(lowered, strings.ToLower(topic)) {
			return false, fmt.Sprintf("Hard-blocked topic detected: %s", topic)
		}
	}
	return true, ""
}

func (f *Filter) classifierHardBlock(ctx context.Context, text string) (bool, string) {
	if f.completer == nil || !f.completer.Configured() {
		return false, "Missing classifier credentials for hard-block check"
	}

	prompt := "You are a safety classifier. Determine if the article discusses any hard-block topics (" +
		strings.Join(f.cfg.HardBlockTopics, ", ") + "). " +
		"Reply with a single line in the format: HARDBLOCK=yes|no;REASON=...\n\nARTICLE:\n" + text

	reply, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		return false, fmt.Sprintf("Hard-block classifier unavailable: %v", err)
	}

	content := strings.TrimSpace(reply)
	if strings.HasPrefix(strings.ToLower(content), "hardblock=yes") {
		return false, content
	}
	return true, ""
}

func (f *Filter) relevance(ctx context.Context, text string, catalog []domain.Product) (bool, string) {
	if f.completer == nil || !f.completer.Configured() {
		return false, "Missing classifier credentials for relevance check"
	}

	summaries := make([]string, 0, maxRelevanceProducts)
	for i, product := range catalog {
		if i >= maxRelevanceProducts {
			break
		}
		summary := strings.Join([]string{
			product.Name, product.Category, product.MainBenefit, product.Ingredients, product.Tags,
		}, " | ")
		summaries = append(summaries, strings.Trim(summary, " |"))
	}

	prompt := "You are a relevance classifier for a health news social automation. " +
		"Given a news article and a list of products, decide whether the article is " +
		"related to at least one product. Return a relevance score between 0 and 1. " +
		"Reply with a single line in the format: RELATED=yes|no;SCORE=0.00;REASON=...\n\n" +
		"ARTICLE:\n" + text + "\n\nPRODUCTS:\n- " + strings.Join(summaries, "\n- ")

	reply, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		return false, fmt.Sprintf("Relevance classifier unavailable: %v", err)
	}

	content := strings.TrimSpace(reply)
	lowered := strings.ToLower(content)
	score := parseScore(lowered)
	if strings.HasPrefix(lowered, "related=yes") && score >= f.cfg.RelevanceThreshold {
		f.debug("relevance check passed", "score", score)
		return true, ""
	}
	return false, content
}

// parseScore pulls SCORE=<float> out of the classifier reply.
// Malformed output degrades to 0.0 rather than erroring.
func parseScore(lowered string) float64 {
	idx := strings.Index(lowered, "score=")
	if idx < 0 {
		return 0.0
	}
	value := lowered[idx+len("score="):]
	if end := strings.IndexAny(value, "; \n"); end >= 0 {
		value = value[:end]
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0.0
	}
	return score
}

func (f *Filter) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
