package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

// Matcher ranks catalog products against a news entry and picks the
// best one, optionally letting a generative model re-rank the top
// lexical candidates.
type Matcher struct {
	cfg       config.MatchConfig
	completer ports.ChatCompleter
	logger    *slog.Logger
}

// NewMatcher wires matching configuration with the optional re-rank
// backend. completer may be nil when re-ranking is disabled.
func NewMatcher(cfg config.MatchConfig, completer ports.ChatCompleter, logger *slog.Logger) *Matcher {
	return &Matcher{cfg: cfg, completer: completer, logger: logger}
}

type candidate struct {
	product domain.Product
	score   float64
}

// Select returns the best product for the entry, or a nil-product
// result carrying the best score seen when nothing clears the
// threshold. Equal scores keep catalog order.
func (m *Matcher) Select(ctx context.Context, entry domain.NewsEntry, catalog []domain.Product) domain.MatchResult {
	ranked := make([]candidate, 0, len(catalog))
	for _, product := range catalog {
		ranked = append(ranked, candidate{product: product, score: Score(entry, product)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) == 0 {
		return domain.MatchResult{}
	}

	topN := m.cfg.RerankTopN
	if topN <= 0 {
		topN = 5
	}
	candidates := make([]candidate, 0, topN)
	for _, c := range ranked {
		if c.score <= 0 || len(candidates) >= topN {
			break
		}
		candidates = append(candidates, c)
	}

	if m.cfg.UseAIRerank && len(candidates) > 0 {
		chosen, score := m.rerank(ctx, entry, candidates)
		if chosen != nil && score >= m.cfg.Threshold {
			return domain.MatchResult{Product: chosen, Score: score}
		}
		return domain.MatchResult{Score: score}
	}

	best := ranked[0]
	if best.score < m.cfg.Threshold {
		return domain.MatchResult{Score: best.score}
	}
	return domain.MatchResult{Product: &best.product, Score: best.score}
}

// rerank asks the model to pick one candidate by 1-based index.
// Anything malformed or out of range means no match, never an error.
func (m *Matcher) rerank(ctx context.Context, entry domain.NewsEntry, candidates []candidate) (*domain.Product, float64) {
	if m.completer == nil || !m.completer.Configured() {
		return nil, 0.0
	}

	reply, err := m.completer.Complete(ctx, rerankPrompt(entry, candidates))
	if err != nil {
		m.debug("rerank call failed", "error", err)
		return nil, 0.0
	}

	content := strings.ToLower(strings.TrimSpace(reply))
	if strings.Contains(content, "choice=none") {
		return nil, 0.0
	}
	idx := strings.Index(content, "choice=")
	if idx < 0 {
		return nil, 0.0
	}
	value := content[idx+len("choice="):]
	if fields := strings.Fields(value); len(fields) > 0 {
		value = fields[0]
	}
	choice, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || choice < 1 || choice > len(candidates) {
		return nil, 0.0
	}

	picked := candidates[choice-1]
	return &picked.product, picked.score
}

func rerankPrompt(entry domain.NewsEntry, candidates []candidate) string {
	var lines []string
	for i, c := range candidates {
		lines = append(lines, fmt.Sprintf("%d) %s | %s | %s | score=%.2f",
			i+1, c.product.Name, c.product.Category, c.product.MainBenefit, c.score))
	}

	return "You are selecting the most relevant wellness product for a health news article. " +
		"Choose the best option number from the list, or reply NONE if nothing fits. " +
		"Reply with: CHOICE=<number or NONE>\n\n" +
		"ARTICLE:\n" + entry.Text() + "\n\n" +
		"CANDIDATES:\n" + strings.Join(lines, "\n")
}

func (m *Matcher) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
