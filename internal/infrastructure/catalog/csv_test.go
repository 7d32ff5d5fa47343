package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/itmedclk/HealthNews/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCSVLoaderFiltersInactiveRows(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "products.csv",
		"product_name,product_url,image_path,description,key_ingredients,main_benefit,category,sub_category,tags,priority,is_active\n"+
			"Magnesium Glycinate,https://shop.example.com/mag,/images/mag,Gentle magnesium,magnesium glycinate,sleep support,sleep,minerals,\"sleep,rest\",1,1\n"+
			"Retired Product,https://shop.example.com/old,/images/old,Old,none,none,misc,,,2,0\n")

	loader := NewCSVLoader(nil, nil)
	products, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if len(products) != 1 {
		t.Fatalf("expected 1 active product, got %d", len(products))
	}
	p := products[0]
	if p.Name != "Magnesium Glycinate" || p.Category != "sleep" || p.Ingredients != "magnesium glycinate" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if p.Image.Status != domain.ImageUnresolved {
		t.Fatalf("without a resolver the image must stay unresolved, got %s", p.Image.Status)
	}
}

func TestCSVLoaderMissingFile(t *testing.T) {
	t.Parallel()

	loader := NewCSVLoader(nil, nil)
	if _, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatalf("missing catalog file must error")
	}
}

func TestBrandCSVLoader(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "brands.csv",
		"brand_name,product_info_csv_path,rss_sources,target_platforms,workspace_ids,tags\n"+
			"acme,info/acme.csv,https://a.example.com/rss|https://b.example.com/rss,\"facebook,instagram\",ws1,wellness\n"+
			",skipped.csv,,,,\n"+
			"basic,,,,,\n")

	loader := NewBrandCSVLoader()
	brands, err := loader.LoadBrands(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadBrands error: %v", err)
	}

	if len(brands) != 2 {
		t.Fatalf("expected 2 named brands, got %d", len(brands))
	}

	acme := brands[0]
	if acme.Name != "acme" || acme.CatalogRef != "info/acme.csv" {
		t.Fatalf("unexpected brand: %+v", acme)
	}
	if len(acme.RSSSources) != 2 || acme.RSSSources[1] != "https://b.example.com/rss" {
		t.Fatalf("rss override not parsed: %+v", acme.RSSSources)
	}
	if acme.Platforms != "facebook,instagram" || acme.Workspaces != "ws1" {
		t.Fatalf("posting targets not parsed: %+v", acme)
	}

	if basic := brands[1]; len(basic.RSSSources) != 0 || basic.CatalogRef != "" {
		t.Fatalf("empty columns should stay empty: %+v", basic)
	}
}

func TestParseRSSSources(t *testing.T) {
	t.Parallel()

	got := ParseRSSSources(" https://a.example.com/rss | |https://b.example.com/rss ")
	if len(got) != 2 || got[0] != "https://a.example.com/rss" || got[1] != "https://b.example.com/rss" {
		t.Fatalf("unexpected sources: %+v", got)
	}
	if ParseRSSSources("") != nil {
		t.Fatalf("empty value should parse to nil")
	}
}

func TestDeriveTopics(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Category: "Sleep", SubCategory: "Minerals", Tags: "rest, Sleep"},
		{Category: "immunity", Tags: "vitamin c"},
		{Category: "sleep"},
	}

	topics := DeriveTopics("acme", products)
	if topics.BrandName != "acme" {
		t.Fatalf("unexpected brand: %s", topics.BrandName)
	}
	if topics.Categories != "immunity,sleep" {
		t.Fatalf("categories should be distinct, lowercase, sorted: %q", topics.Categories)
	}
	if topics.SubCategories != "minerals" {
		t.Fatalf("unexpected subcategories: %q", topics.SubCategories)
	}
	if topics.Tags != "rest,sleep,vitamin c" {
		t.Fatalf("unexpected tags: %q", topics.Tags)
	}
	if topics.Topics != "immunity,sleep,rest,sleep,vitamin c" {
		t.Fatalf("topics should join categories and tags: %q", topics.Topics)
	}
	if topics.UpdatedAt == "" {
		t.Fatalf("updated_at must be set")
	}
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(NewCSVLoader(nil, nil))

	if _, err := registry.Resolve("csv"); err != nil {
		t.Fatalf("registered loader should resolve: %v", err)
	}
	if _, err := registry.Resolve("web"); err == nil {
		t.Fatalf("unregistered loader must error")
	}
}
