package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

// CSVLoader reads product catalogs from tabular files, resolving
// image links through the configured resolver. Rows with is_active
// != 1 are dropped at the boundary.
type CSVLoader struct {
	resolver ports.ImageResolver
	logger   *slog.Logger
}

var _ ports.ProductLoader = (*CSVLoader)(nil)

// NewCSVLoader wires the image resolver; resolver may be nil when
// images are not needed (preview runs).
func NewCSVLoader(resolver ports.ImageResolver, logger *slog.Logger) *CSVLoader {
	return &CSVLoader{resolver: resolver, logger: logger}
}

// Name identifies the loader inside the registry.
func (l *CSVLoader) Name() string {
	return "csv"
}

// Load reads active products from the CSV at ref and attaches
// resolved image links.
func (l *CSVLoader) Load(ctx context.Context, ref string) ([]domain.Product, error) {
	rows, err := readRows(ref)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row["is_active"]) != "1" {
			continue
		}

		imagePath := strings.TrimSpace(row["image_path"])
		image := domain.ImageLink{Status: domain.ImageUnresolved}
		if l.resolver != nil {
			image = l.resolver.Resolve(ctx, imagePath)
		}

		products = append(products, domain.Product{
			Name:        strings.TrimSpace(row["product_name"]),
			URL:         strings.TrimSpace(row["product_url"]),
			Image:       image,
			ImagePath:   imagePath,
			Description: strings.TrimSpace(row["description"]),
			Ingredients: strings.TrimSpace(row["key_ingredients"]),
			MainBenefit: strings.TrimSpace(row["main_benefit"]),
			Category:    strings.TrimSpace(row["category"]),
			SubCategory: strings.TrimSpace(row["sub_category"]),
			Tags:        strings.TrimSpace(row["tags"]),
			Priority:    strings.TrimSpace(row["priority"]),
		})
	}

	if l.logger != nil {
		l.logger.Debug("catalog loaded", "path", ref, "products", len(products))
	}
	return products, nil
}

// BrandCSVLoader reads the brand list.
type BrandCSVLoader struct{}

var _ ports.BrandLoader = (*BrandCSVLoader)(nil)

// NewBrandCSVLoader builds the brand list reader.
func NewBrandCSVLoader() *BrandCSVLoader {
	return &BrandCSVLoader{}
}

// LoadBrands reads brand rows; rows without a brand_name are skipped.
func (l *BrandCSVLoader) LoadBrands(ctx context.Context, ref string) ([]domain.Brand, error) {
	rows, err := readRows(ref)
	if err != nil {
		return nil, err
	}

	brands := make([]domain.Brand, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row["brand_name"])
		if name == "" {
			continue
		}
		brands = append(brands, domain.Brand{
			Name:       name,
			CatalogRef: strings.TrimSpace(row["product_info_csv_path"]),
			RSSSources: ParseRSSSources(row["rss_sources"]),
			Platforms:  strings.TrimSpace(row["target_platforms"]),
			Workspaces: strings.TrimSpace(row["workspace_ids"]),
			Tags:       strings.TrimSpace(row["tags"]),
		})
	}
	return brands, nil
}

// ParseRSSSources splits a |-separated feed override list.
func ParseRSSSources(value string) []string {
	var sources []string
	for _, item := range strings.Split(value, "|") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			sources = append(sources, trimmed)
		}
	}
	return sources
}

// readRows loads a CSV file into header-keyed maps. Missing files are
// also tried under info/ to match the repo's data layout.
func readRows(path string) ([]map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		alt := filepath.Join("info", path)
		if _, altErr := os.Stat(alt); altErr == nil {
			path = alt
		}
	}

	handle, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer handle.Close()

	reader := csv.NewReader(handle)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := map[string]string{}
		for i, column := range header {
			if i < len(record) {
				row[strings.TrimSpace(column)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
