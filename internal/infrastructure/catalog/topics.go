package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/itmedclk/HealthNews/internal/domain"
)

// DeriveTopics collects the distinct categories, sub-categories, and
// tags across a brand's catalog into the brand topic cache record.
func DeriveTopics(brandName string, products []domain.Product) domain.BrandTopics {
	categories := collect(products, func(p domain.Product) string { return p.Category })
	subCategories := collect(products, func(p domain.Product) string { return p.SubCategory })

	tagSet := map[string]struct{}{}
	for _, product := range products {
		for _, tag := range strings.Split(product.Tags, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tagSet[strings.ToLower(trimmed)] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	topics := append(append([]string{}, categories...), tags...)

	return domain.BrandTopics{
		BrandName:     brandName,
		Topics:        strings.Join(topics, ","),
		Categories:    strings.Join(categories, ","),
		SubCategories: strings.Join(subCategories, ","),
		Tags:          strings.Join(tags, ","),
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

func collect(products []domain.Product, field func(domain.Product) string) []string {
	set := map[string]struct{}{}
	for _, product := range products {
		if value := strings.TrimSpace(field(product)); value != "" {
			set[strings.ToLower(value)] = struct{}{}
		}
	}
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
