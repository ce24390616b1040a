package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maltedev/ph-ai-tracker/internal/api"
	"github.com/maltedev/ph-ai-tracker/internal/config"
	"github.com/maltedev/ph-ai-tracker/internal/database"
	"github.com/maltedev/ph-ai-tracker/internal/scheduler"
	"github.com/maltedev/ph-ai-tracker/internal/scraper"
	"github.com/maltedev/ph-ai-tracker/internal/tagging"
	"github.com/maltedev/ph-ai-tracker/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := tracker.BuildProvider(tracker.FactoryOptions{
		Strategy: cfg.Tracker.Strategy,
		APIToken: cfg.Tracker.APIToken,
		APIOpts: api.Options{
			Timeout: cfg.Tracker.Timeout,
		},
		ScraperCfg: scraper.Config{
			Timeout:        cfg.Tracker.Timeout,
			EnrichProducts: cfg.Tracker.Enrich,
			MaxEnrich:      cfg.Tracker.MaxEnrich,
		},
	})
	if err != nil {
		logger.Error("failed to build provider", "error", err)
		os.Exit(1)
	}
	t := tracker.New(prov)
	defer t.Close()

	store, err := database.Open(cfg.Tracker.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.Tracker.DBPath)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	runner := scheduler.NewRunner(t, store, scheduler.Config{
		SearchTerm:    cfg.Tracker.SearchTerm,
		Limit:         cfg.Tracker.Limit,
		RetryAttempts: cfg.Scheduler.RetryAttempts,
		RetryBackoff:  cfg.Scheduler.RetryBackoff,
	}).WithTagger(tagging.FromConfig(cfg.Tagging.APIKey, tagging.LLMOptions{
		BaseURL: cfg.Tagging.BaseURL,
		Model:   cfg.Tagging.Model,
		Timeout: cfg.Tagging.Timeout,
	}))

	// One cycle on startup so a fresh deployment has data before the first
	// cron tick.
	if _, err := runner.RunOnce(ctx); err != nil {
		logger.Error("initial run failed", "error", err)
	}

	if err := runner.Start(ctx, cfg.Scheduler.CronSchedule); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("scheduler shut down")
}
