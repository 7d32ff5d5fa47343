package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Scheduler.Hour != 5 || cfg.Scheduler.Minute != 0 {
		t.Fatalf("unexpected default slot: %d:%d", cfg.Scheduler.Hour, cfg.Scheduler.Minute)
	}
	if cfg.Scheduler.Location().String() != "America/Los_Angeles" {
		t.Fatalf("unexpected default timezone: %s", cfg.Scheduler.Location())
	}
	if cfg.Safety.RelevanceThreshold != 0.4 {
		t.Fatalf("unexpected relevance threshold: %f", cfg.Safety.RelevanceThreshold)
	}
	if cfg.Match.Threshold != 0.1 || cfg.Match.RerankTopN != 5 || cfg.Match.RepeatCount != 2 {
		t.Fatalf("unexpected match defaults: %+v", cfg.Match)
	}
	if len(cfg.Feeds) == 0 {
		t.Fatalf("default feed list must not be empty")
	}
	if len(cfg.Safety.HardBlockTopics) == 0 {
		t.Fatalf("default hard-block topics must not be empty")
	}
	if cfg.Caption.MinWords != 100 || cfg.Caption.MaxWords != 150 {
		t.Fatalf("unexpected caption bounds: %+v", cfg.Caption)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCHEDULE_HOUR", "9")
	t.Setenv("RELEVANCE_THRESHOLD", "0.7")
	t.Setenv("USE_AI_RERANK", "false")
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	t.Setenv("POSTLY_API_KEY", "pk")

	cfg := Load()

	if cfg.Scheduler.Hour != 9 {
		t.Fatalf("schedule hour override ignored: %d", cfg.Scheduler.Hour)
	}
	if cfg.Safety.RelevanceThreshold != 0.7 {
		t.Fatalf("relevance override ignored: %f", cfg.Safety.RelevanceThreshold)
	}
	if cfg.Match.UseAIRerank {
		t.Fatalf("rerank override ignored")
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("timezone override ignored: %s", cfg.Scheduler.Location())
	}
	if cfg.Postly.APIKey != "pk" {
		t.Fatalf("api key override ignored")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: debug
scheduler:
  hour: 7
  cronExpression: "0 7 * * *"
feeds:
  - https://only.example.com/rss
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HEALTHNEWS_CONFIG", path)

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("file log level ignored: %s", cfg.Logging.Level)
	}
	if cfg.Scheduler.Hour != 7 {
		t.Fatalf("file hour ignored: %d", cfg.Scheduler.Hour)
	}
	if cfg.Scheduler.CronExpression != "0 7 * * *" {
		t.Fatalf("file cron ignored: %s", cfg.Scheduler.CronExpression)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0] != "https://only.example.com/rss" {
		t.Fatalf("file feeds ignored: %+v", cfg.Feeds)
	}
	// unset values keep their defaults
	if cfg.Scheduler.Minute != 0 || cfg.Match.Threshold != 0.1 {
		t.Fatalf("defaults lost during merge")
	}
}

func TestInvalidTimezoneFallsBack(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "Not/AZone")

	cfg := Load()
	if cfg.Scheduler.Location().String() != "America/Los_Angeles" {
		t.Fatalf("invalid timezone should fall back, got %s", cfg.Scheduler.Location())
	}
}
