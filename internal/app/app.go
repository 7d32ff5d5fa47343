package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"github.com/itmedclk/HealthNews/internal/caption"
	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/infrastructure/catalog"
	"github.com/itmedclk/HealthNews/internal/infrastructure/dropbox"
	"github.com/itmedclk/HealthNews/internal/infrastructure/llm"
	"github.com/itmedclk/HealthNews/internal/infrastructure/postly"
	"github.com/itmedclk/HealthNews/internal/infrastructure/rss"
	"github.com/itmedclk/HealthNews/internal/infrastructure/scheduler"
	"github.com/itmedclk/HealthNews/internal/infrastructure/sheets"
	"github.com/itmedclk/HealthNews/internal/infrastructure/storage"
	"github.com/itmedclk/HealthNews/internal/logging"
	"github.com/itmedclk/HealthNews/internal/match"
	"github.com/itmedclk/HealthNews/internal/safety"
	"github.com/itmedclk/HealthNews/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	store    *storage.Store
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	completer := llm.NewClient(cfg.LLM)
	resolver := dropbox.NewResolver(cfg.Dropbox, cfg.Catalog.RotationState, baseLogger.With("component", "dropbox"))

	registry := catalog.NewRegistry()
	registry.Register(catalog.NewCSVLoader(resolver, baseLogger.With("component", "catalog.csv")))
	registry.Register(catalog.NewWebLoader(cfg.Catalog, nil, baseLogger.With("component", "catalog.web")))

	loader, err := registry.Resolve(cfg.Catalog.Loader)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolve catalog loader: %w", err)
	}

	pipeline := usecase.NewPipeline(cfg, usecase.PipelineDeps{
		Source:  rss.NewSource(gofeed.NewParser(), baseLogger.With("component", "rss")),
		Brands:  catalog.NewBrandCSVLoader(),
		Catalog: loader,
		Store:   store,
		Safety:  safety.NewFilter(cfg.Safety, completer, baseLogger.With("component", "safety")),
		Matcher: match.NewMatcher(cfg.Match, completer, baseLogger.With("component", "matcher")),
		Caption: caption.NewWriter(cfg.Caption, completer, baseLogger.With("component", "caption")),
		Poster:  postly.NewClient(cfg.Postly),
		Sheets:  sheets.NewAppender(cfg.Sheets, baseLogger.With("component", "sheets")),
		Logger:  baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		store:    store,
	}, nil
}

// Run executes the pipeline once, or on a cron loop when a cron
// expression is configured.
func (a *Application) Run(ctx context.Context) error {
	defer a.store.Close()

	if a.cfg.Scheduler.CronExpression == "" {
		return a.pipeline.Run(ctx)
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	runner := usecase.NewScheduler(driver, a.pipeline)
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	<-ctx.Done()
	return runner.Stop(context.Background())
}

// Pipeline exposes the wired pipeline for one-off invocations.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}
