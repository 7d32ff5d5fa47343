package match

import (
	"math"
	"regexp"
	"strings"

	"github.com/itmedclk/HealthNews/internal/domain"
)

var tokenExpr = regexp.MustCompile(`[a-z]{3,}`)

// Generic wellness vocabulary that says nothing about which product
// an article relates to.
var stopWords = map[string]struct{}{
	"health":     {},
	"healthy":    {},
	"wellness":   {},
	"natural":    {},
	"daily":      {},
	"body":       {},
	"support":    {},
	"supports":   {},
	"supplement": {},
	"product":    {},
	"study":      {},
	"research":   {},
	"new":        {},
	"people":     {},
	"may":        {},
	"can":        {},
	"help":       {},
	"helps":      {},
}

// Field weights for product text. A token takes the highest weight of
// any field it appears in.
const (
	weightName        = 3.0
	weightMainBenefit = 2.5
	weightCategory    = 2.0
	weightIngredients = 2.0
	weightDescription = 1.0
)

func tokenize(text string) []string {
	raw := tokenExpr.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

func weightedTokens(product domain.Product) map[string]float64 {
	weights := map[string]float64{}
	add := func(text string, weight float64) {
		for _, tok := range tokenize(text) {
			if weight > weights[tok] {
				weights[tok] = weight
			}
		}
	}
	add(product.Name, weightName)
	add(product.MainBenefit, weightMainBenefit)
	add(product.Category, weightCategory)
	add(product.Ingredients, weightIngredients)
	add(product.Description, weightDescription)
	return weights
}

// Score computes the weighted token-overlap similarity between a news
// entry and a product. Empty token sets on either side score 0.0. The
// sum of matched weights is normalized by count^0.7 so long entries
// are dampened rather than punished linearly.
func Score(entry domain.NewsEntry, product domain.Product) float64 {
	entryTokens := tokenSet(entry.Text())
	if len(entryTokens) == 0 {
		return 0.0
	}

	productWeights := weightedTokens(product)
	if len(productWeights) == 0 {
		return 0.0
	}

	var sum float64
	for tok := range entryTokens {
		sum += productWeights[tok]
	}
	if sum == 0 {
		return 0.0
	}

	return sum / math.Pow(float64(len(entryTokens)), 0.7)
}
