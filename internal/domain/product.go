package domain

// ImageStatus reports how image-link resolution went for a product.
type ImageStatus string

const (
	ImageResolved     ImageStatus = "ok"
	ImageMissingToken ImageStatus = "missing_dropbox_token"
	ImageMissingPath  ImageStatus = "missing_image_path"
	ImageNoFiles      ImageStatus = "no_files_found"
	ImageNoImageFiles ImageStatus = "no_image_files"
	ImageLinkFailed   ImageStatus = "link_create_failed"
	ImageUnresolved   ImageStatus = "unresolved"
)

// ImageLink carries a resolved image URL together with its resolution
// status, so "never resolved" stays distinct from "resolved to empty".
type ImageLink struct {
	URL           string
	Status        ImageStatus
	Name          string
	RotationIndex int
	RotationTotal int
}

// Usable reports whether the link can be attached to a post.
func (l ImageLink) Usable() bool {
	return l.Status == ImageResolved && l.URL != ""
}

// Product is one catalog row for a brand, read-only for the run.
type Product struct {
	Name        string
	URL         string
	Image       ImageLink
	ImagePath   string
	Description string
	Ingredients string
	MainBenefit string
	Category    string
	SubCategory string
	Tags        string // comma-separated
	Priority    string
}

// Brand groups a product catalog with its posting targets.
type Brand struct {
	Name        string
	CatalogRef  string   // per-brand product source; empty = default
	RSSSources  []string // overrides the global feed list when set
	Platforms   string   // target platforms, comma-separated
	Workspaces  string   // workspace id list, comma-separated
	Tags        string
}

// MatchResult is the transient outcome of matching one entry against
// a catalog. Product is nil when nothing matched; Score is still the
// best score seen so callers can tell "no candidates" from
// "below-threshold candidate".
type MatchResult struct {
	Product *Product
	Score   float64
}

// BrandTopics caches the topic surface derived from a brand's catalog.
type BrandTopics struct {
	BrandName     string
	Topics        string
	Categories    string
	SubCategories string
	Tags          string
	UpdatedAt     string
}
