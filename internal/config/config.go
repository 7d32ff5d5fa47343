package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "America/Los_Angeles"
	configPathEnv   = "HEALTHNEWS_CONFIG"

	storeDSNEnv         = "STORE_DSN"
	llmAPIKeyEnv        = "NOVITA_API_KEY"
	llmBaseURLEnv       = "NOVITA_BASE_URL"
	llmModelEnv         = "NOVITA_MODEL"
	postlyAPIKeyEnv     = "POSTLY_API_KEY"
	postlyBaseURLEnv    = "POSTLY_BASE_URL"
	postlyWorkspacesEnv = "POSTLY_WORKSPACE_IDS"
	timezoneEnv         = "LOCAL_TIMEZONE"
	scheduleHourEnv     = "SCHEDULE_HOUR"
	scheduleMinuteEnv   = "SCHEDULE_MINUTE"
	relevanceEnv        = "RELEVANCE_THRESHOLD"
	matchThresholdEnv   = "PRODUCT_MATCH_THRESHOLD"
	rerankEnv           = "USE_AI_RERANK"
	rerankTopNEnv       = "AI_RERANK_TOP_N"
	avoidRepeatEnv      = "AVOID_REPEAT_PRODUCT"
	avoidRepeatCountEnv = "AVOID_REPEAT_PRODUCT_COUNT"
	productCSVEnv       = "PRODUCT_INFO_CSV_PATH"
	brandsCSVEnv        = "BRANDS_CSV_PATH"
	dropboxTokenEnv     = "DROPBOX_ACCESS_TOKEN"
	dropboxRefreshEnv   = "DROPBOX_REFRESH_TOKEN"
	dropboxClientIDEnv  = "DROPBOX_CLIENT_ID"
	dropboxSecretEnv    = "DROPBOX_CLIENT_SECRET"
	sheetIDEnv          = "GOOGLE_SHEET_ID"
	sheetTokenEnv       = "GOOGLE_SHEETS_TOKEN"
	catalogTTLEnv       = "CATALOG_CACHE_TTL_DAYS"
)

// Config holds every setting the pipeline needs, built once at
// startup and passed by value into constructors.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Feeds     []string        `yaml:"feeds"`
	Safety    SafetyConfig    `yaml:"safety"`
	Match     MatchConfig     `yaml:"match"`
	Caption   CaptionConfig   `yaml:"caption"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	LLM       LLMConfig       `yaml:"llm"`
	Postly    PostlyConfig    `yaml:"postly"`
	Dropbox   DropboxConfig   `yaml:"dropbox"`
	Sheets    SheetsConfig    `yaml:"sheets"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig describes the history store connection. A DSN starting
// with postgres:// selects lib/pq; anything else is a sqlite path.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines the daily slot and the optional cron mode.
type SchedulerConfig struct {
	Timezone       string         `yaml:"timezone"`
	Hour           int            `yaml:"hour"`
	Minute         int            `yaml:"minute"`
	CronExpression string         `yaml:"cronExpression"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the configured timezone.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SafetyConfig drives the safety filter gates.
type SafetyConfig struct {
	HardBlockTopics    []string `yaml:"hardBlockTopics"`
	RelevanceThreshold float64  `yaml:"relevanceThreshold"`
}

// MatchConfig drives lexical matching and the optional AI re-rank.
type MatchConfig struct {
	Threshold   float64 `yaml:"threshold"`
	UseAIRerank bool    `yaml:"useAiRerank"`
	RerankTopN  int     `yaml:"rerankTopN"`
	AvoidRepeat bool    `yaml:"avoidRepeat"`
	RepeatCount int     `yaml:"repeatCount"`
}

// CaptionConfig bounds generated caption length.
type CaptionConfig struct {
	MinWords int `yaml:"minWords"`
	MaxWords int `yaml:"maxWords"`
}

// CatalogConfig locates brand and product sources.
type CatalogConfig struct {
	Loader        string `yaml:"loader"` // "csv" or "web"
	ProductCSV    string `yaml:"productCsv"`
	BrandsCSV     string `yaml:"brandsCsv"`
	WebURL        string `yaml:"webUrl"`
	CachePath     string `yaml:"cachePath"`
	CacheTTLDays  int    `yaml:"cacheTtlDays"`
	RotationState string `yaml:"rotationState"`
}

// LLMConfig defines how to contact the OpenAI-compatible API used for
// classification, re-ranking, and captions.
type LLMConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// PostlyConfig wires the post-scheduling API.
type PostlyConfig struct {
	BaseURL    string `yaml:"baseUrl"`
	APIKey     string `yaml:"apiKey"`
	Workspaces string `yaml:"workspaces"` // default workspace ids
}

// DropboxConfig wires image-link resolution.
type DropboxConfig struct {
	AccessToken  string `yaml:"accessToken"`
	RefreshToken string `yaml:"refreshToken"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
}

// SheetsConfig wires the best-effort spreadsheet log.
type SheetsConfig struct {
	SheetID string `yaml:"sheetId"`
	Token   string `yaml:"token"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}
	if len(cfg.Safety.HardBlockTopics) == 0 {
		cfg.Safety.HardBlockTopics = defaultConfig().Safety.HardBlockTopics
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Store.DSN, storeDSNEnv)
	setString(&c.LLM.APIKey, llmAPIKeyEnv)
	setString(&c.LLM.BaseURL, llmBaseURLEnv)
	setString(&c.LLM.Model, llmModelEnv)
	setString(&c.Postly.APIKey, postlyAPIKeyEnv)
	setString(&c.Postly.BaseURL, postlyBaseURLEnv)
	setString(&c.Postly.Workspaces, postlyWorkspacesEnv)
	setString(&c.Scheduler.Timezone, timezoneEnv)
	setInt(&c.Scheduler.Hour, scheduleHourEnv)
	setInt(&c.Scheduler.Minute, scheduleMinuteEnv)
	setFloat(&c.Safety.RelevanceThreshold, relevanceEnv)
	setFloat(&c.Match.Threshold, matchThresholdEnv)
	setBool(&c.Match.UseAIRerank, rerankEnv)
	setInt(&c.Match.RerankTopN, rerankTopNEnv)
	setBool(&c.Match.AvoidRepeat, avoidRepeatEnv)
	setInt(&c.Match.RepeatCount, avoidRepeatCountEnv)
	setString(&c.Catalog.ProductCSV, productCSVEnv)
	setString(&c.Catalog.BrandsCSV, brandsCSVEnv)
	setInt(&c.Catalog.CacheTTLDays, catalogTTLEnv)
	setString(&c.Dropbox.AccessToken, dropboxTokenEnv)
	setString(&c.Dropbox.RefreshToken, dropboxRefreshEnv)
	setString(&c.Dropbox.ClientID, dropboxClientIDEnv)
	setString(&c.Dropbox.ClientSecret, dropboxSecretEnv)
	setString(&c.Sheets.SheetID, sheetIDEnv)
	setString(&c.Sheets.Token, sheetTokenEnv)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Store.DSN != "" {
		base.Store = override.Store
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.Hour != 0 {
		base.Scheduler.Hour = override.Scheduler.Hour
	}
	if override.Scheduler.Minute != 0 {
		base.Scheduler.Minute = override.Scheduler.Minute
	}
	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	if len(override.Safety.HardBlockTopics) > 0 {
		base.Safety.HardBlockTopics = override.Safety.HardBlockTopics
	}
	if override.Safety.RelevanceThreshold != 0 {
		base.Safety.RelevanceThreshold = override.Safety.RelevanceThreshold
	}

	if override.Match.Threshold != 0 {
		base.Match.Threshold = override.Match.Threshold
	}
	if override.Match.RerankTopN != 0 {
		base.Match.RerankTopN = override.Match.RerankTopN
	}
	if override.Match.RepeatCount != 0 {
		base.Match.RepeatCount = override.Match.RepeatCount
	}

	if override.Caption.MinWords != 0 {
		base.Caption.MinWords = override.Caption.MinWords
	}
	if override.Caption.MaxWords != 0 {
		base.Caption.MaxWords = override.Caption.MaxWords
	}

	if override.Catalog.Loader != "" {
		base.Catalog.Loader = override.Catalog.Loader
	}
	if override.Catalog.ProductCSV != "" {
		base.Catalog.ProductCSV = override.Catalog.ProductCSV
	}
	if override.Catalog.BrandsCSV != "" {
		base.Catalog.BrandsCSV = override.Catalog.BrandsCSV
	}
	if override.Catalog.WebURL != "" {
		base.Catalog.WebURL = override.Catalog.WebURL
	}
	if override.Catalog.CachePath != "" {
		base.Catalog.CachePath = override.Catalog.CachePath
	}
	if override.Catalog.CacheTTLDays != 0 {
		base.Catalog.CacheTTLDays = override.Catalog.CacheTTLDays
	}
	if override.Catalog.RotationState != "" {
		base.Catalog.RotationState = override.Catalog.RotationState
	}

	if override.LLM.BaseURL != "" {
		base.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}

	if override.Postly.BaseURL != "" {
		base.Postly.BaseURL = override.Postly.BaseURL
	}
	if override.Postly.APIKey != "" {
		base.Postly.APIKey = override.Postly.APIKey
	}
	if override.Postly.Workspaces != "" {
		base.Postly.Workspaces = override.Postly.Workspaces
	}

	if override.Dropbox.AccessToken != "" {
		base.Dropbox.AccessToken = override.Dropbox.AccessToken
	}
	if override.Dropbox.RefreshToken != "" {
		base.Dropbox.RefreshToken = override.Dropbox.RefreshToken
	}
	if override.Dropbox.ClientID != "" {
		base.Dropbox.ClientID = override.Dropbox.ClientID
	}
	if override.Dropbox.ClientSecret != "" {
		base.Dropbox.ClientSecret = override.Dropbox.ClientSecret
	}

	if override.Sheets.SheetID != "" {
		base.Sheets.SheetID = override.Sheets.SheetID
	}
	if override.Sheets.Token != "" {
		base.Sheets.Token = override.Sheets.Token
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Store:   StoreConfig{DSN: "data/logs.sqlite"},
		Scheduler: SchedulerConfig{
			Timezone: defaultTimezone,
			Hour:     5,
			Minute:   0,
			location: tz,
		},
		Feeds: []string{
			"https://rss.nytimes.com/services/xml/rss/nyt/Health.xml",
			"https://www.medicalnewstoday.com/rss",
			"https://www.sciencedaily.com/rss/health_medicine.xml",
			"https://www.cdc.gov/media/rss.xml",
			"https://www.who.int/feeds/entity/mediacentre/news/en/rss.xml",
			"https://www.nih.gov/feed",
			"https://www.health.com/feed",
		},
		Safety: SafetyConfig{
			HardBlockTopics: []string{
				"pregnancy",
				"children",
				"cancer",
				"diabetes",
				"mental health",
				"sexual health",
			},
			RelevanceThreshold: 0.4,
		},
		Match: MatchConfig{
			Threshold:   0.1,
			UseAIRerank: true,
			RerankTopN:  5,
			AvoidRepeat: true,
			RepeatCount: 2,
		},
		Caption: CaptionConfig{MinWords: 100, MaxWords: 150},
		Catalog: CatalogConfig{
			Loader:        "csv",
			ProductCSV:    "info/Product_Info.csv",
			BrandsCSV:     "info/Brands.csv",
			WebURL:        "https://www.apherb.com/goods_list",
			CachePath:     "data/catalog_cache.json",
			CacheTTLDays:  7,
			RotationState: "data/image_rotation.json",
		},
		LLM: LLMConfig{
			BaseURL: "https://api.novita.ai/openai",
			Model:   "deepseek/deepseek-v3.2",
		},
		Postly: PostlyConfig{BaseURL: "https://openapi.postly.ai"},
	}
}
