package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mmcdole/gofeed"

	"github.com/itmedclk/HealthNews/internal/caption"
	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/infrastructure/catalog"
	"github.com/itmedclk/HealthNews/internal/infrastructure/dropbox"
	"github.com/itmedclk/HealthNews/internal/infrastructure/llm"
	"github.com/itmedclk/HealthNews/internal/infrastructure/rss"
	"github.com/itmedclk/HealthNews/internal/logging"
	"github.com/itmedclk/HealthNews/internal/match"
	"github.com/itmedclk/HealthNews/internal/safety"
	"github.com/itmedclk/HealthNews/pkg/logger"
)

// previewpost walks the real feeds and catalogs but schedules nothing:
// it prints the entry, product, and caption the next run would post.
func main() {
	_ = godotenv.Load()

	limit := flag.Int("limit", 10, "maximum entries to evaluate per brand")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()
	slogger := logging.New("warn")
	out := logger.New("preview")

	completer := llm.NewClient(cfg.LLM)
	resolver := dropbox.NewResolver(cfg.Dropbox, cfg.Catalog.RotationState, slogger)

	registry := catalog.NewRegistry()
	registry.Register(catalog.NewCSVLoader(resolver, slogger))
	registry.Register(catalog.NewWebLoader(cfg.Catalog, nil, slogger))
	loader, err := registry.Resolve(cfg.Catalog.Loader)
	if err != nil {
		out.Printf("catalog loader: %v", err)
		os.Exit(1)
	}

	brands, err := catalog.NewBrandCSVLoader().LoadBrands(ctx, cfg.Catalog.BrandsCSV)
	if err != nil {
		out.Printf("load brands: %v", err)
		os.Exit(1)
	}

	source := rss.NewSource(gofeed.NewParser(), slogger)
	filter := safety.NewFilter(cfg.Safety, completer, slogger)
	matcher := match.NewMatcher(cfg.Match, completer, slogger)
	writer := caption.NewWriter(cfg.Caption, completer, slogger)

	for _, brand := range brands {
		out.Printf("brand %s", brand.Name)

		ref := brand.CatalogRef
		if ref == "" {
			ref = cfg.Catalog.ProductCSV
		}
		products, err := loader.Load(ctx, ref)
		if err != nil {
			out.Printf("  catalog: %v", err)
			continue
		}

		feeds := brand.RSSSources
		if len(feeds) == 0 {
			feeds = cfg.Feeds
		}
		entries, err := source.Fetch(ctx, feeds)
		if err != nil {
			out.Printf("  feeds: %v", err)
			continue
		}
		if len(entries) > *limit {
			entries = entries[:*limit]
		}

		for _, entry := range entries {
			safe, reason := filter.Evaluate(ctx, entry, products)
			if !safe {
				out.Printf("  skip %q: %s", entry.Title, reason)
				continue
			}
			result := matcher.Select(ctx, entry, products)
			if result.Product == nil {
				out.Printf("  skip %q: no product match (score=%.2f)", entry.Title, result.Score)
				continue
			}
			text, err := writer.Write(ctx, entry, *result.Product)
			if err != nil {
				out.Printf("  skip %q: caption: %v", entry.Title, err)
				continue
			}

			out.Printf("  would post %q with %s (score=%.2f)", entry.Title, result.Product.Name, result.Score)
			fmt.Println()
			fmt.Println(text)
			fmt.Println()
			break
		}
	}
}
