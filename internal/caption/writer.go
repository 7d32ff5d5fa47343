package caption

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

const hashtags = "#health #wellness #nutrition #wellbeing #fitness #healthyhabits #selfcare #healthnews"

const paddingSentence = " This update is shared for educational purposes only."

// Writer builds post captions. When a generative backend is
// configured it writes the caption from a structured prompt; without
// one (or when the call fails) it falls back to the deterministic
// template. Either way the result is clamped to the configured word
// bounds.
type Writer struct {
	cfg       config.CaptionConfig
	completer ports.ChatCompleter
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.CaptionWriter = (*Writer)(nil)

// NewWriter wires caption bounds with the optional LLM backend.
func NewWriter(cfg config.CaptionConfig, completer ports.ChatCompleter, logger *slog.Logger) *Writer {
	return &Writer{cfg: cfg, completer: completer, logger: logger, now: time.Now}
}

// Write produces the caption for an entry/product pair.
func (w *Writer) Write(ctx context.Context, entry domain.NewsEntry, product domain.Product) (string, error) {
	if w.completer != nil && w.completer.Configured() {
		reply, err := w.completer.Complete(ctx, w.prompt(entry, product))
		if err == nil && strings.TrimSpace(reply) != "" {
			return w.enforceBounds(strings.TrimSpace(reply)), nil
		}
		if err != nil && w.logger != nil {
			w.logger.Warn("caption model failed, using template", "error", err)
		}
	}
	return w.enforceBounds(w.template(entry, product)), nil
}

func (w *Writer) prompt(entry domain.NewsEntry, product domain.Product) string {
	return fmt.Sprintf(`You are writing an educational social media caption for a health brand.

GOAL:
- Introduce today's health news clearly and naturally
- Explain why it matters in everyday terms
- Make a smooth, non-promotional connection to a related wellness product

STRICT RULES:
- %d-%d words total
- English only
- Educational tone ONLY
- No medical advice
- No disease treatment or cure claims
- No guarantees or exaggerated benefits
- Do NOT sound like an advertisement

STRUCTURE (follow in order, do NOT label sections):
1) Introduce today's health news based on the article
2) Briefly explain why it matters for everyday health
3) Naturally connect the topic to a related wellness product (educational only)
4) A line starting with exactly: Learn more:
   followed by the product URL
5) A line starting with exactly: Source:
   followed by the article URL and date
6) End with exactly 8 relevant hashtags

ARTICLE:
Title: %s
Summary: %s

PRODUCT:
Name: %s
Description: %s
Key Ingredients: %s
Product URL: %s

Write the caption now.`,
		w.cfg.MinWords, w.cfg.MaxWords,
		entry.Title, entry.Summary,
		product.Name, product.Description, product.Ingredients, product.URL)
}

// template assembles the fixed-structure fallback caption: hook,
// summary, product tie-in, source line, link, hashtags.
func (w *Writer) template(entry domain.NewsEntry, product domain.Product) string {
	hook := entry.Title
	if hook == "" {
		hook = "Today in health news"
	}
	hook += "."

	summary := strings.TrimSpace(entry.Summary)
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}

	why := "Why it matters: understanding health trends helps inform daily wellness choices."
	productLine := fmt.Sprintf(
		"Learn more about %s as part of a balanced, educational wellness routine.",
		product.Name)

	lines := []string{hook, summary, why, productLine, w.sourceLine(entry), product.URL, hashtags}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (w *Writer) sourceLine(entry domain.NewsEntry) string {
	published := entry.Published
	if published.IsZero() {
		published = w.now().UTC()
	}
	source := entry.URL
	if source == "" {
		source = entry.Source
	}
	if source == "" {
		source = "Unknown"
	}
	return fmt.Sprintf("Source: %s, %s", source, published.Format("January 2, 2006"))
}

// enforceBounds pads short captions sentence by sentence and
// truncates long ones at the word limit.
func (w *Writer) enforceBounds(caption string) string {
	if w.cfg.MinWords > 0 {
		for wordCount(caption) < w.cfg.MinWords {
			caption += paddingSentence
		}
	}
	if w.cfg.MaxWords > 0 && wordCount(caption) > w.cfg.MaxWords {
		caption = strings.Join(strings.Fields(caption)[:w.cfg.MaxWords], " ")
	}
	return caption
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
