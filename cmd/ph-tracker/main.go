package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/maltedev/ph-ai-tracker/internal/api"
	"github.com/maltedev/ph-ai-tracker/internal/config"
	"github.com/maltedev/ph-ai-tracker/internal/database"
	"github.com/maltedev/ph-ai-tracker/internal/format"
	"github.com/maltedev/ph-ai-tracker/internal/scheduler"
	"github.com/maltedev/ph-ai-tracker/internal/scraper"
	"github.com/maltedev/ph-ai-tracker/internal/tagging"
	"github.com/maltedev/ph-ai-tracker/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	searchTerm := flag.String("search", cfg.Tracker.SearchTerm, "keyword filter for products")
	limit := flag.Int("limit", cfg.Tracker.Limit, "maximum number of products")
	strategy := flag.String("strategy", cfg.Tracker.Strategy, "fetch strategy: api, scraper, or auto")
	dbPath := flag.String("db", cfg.Tracker.DBPath, "path to the SQLite database")
	output := flag.String("output", "table", "output format: table, json, or markdown")
	noTags := flag.Bool("no-tags", false, "skip LLM tag enrichment")
	flag.Parse()

	cfg.Tracker.SearchTerm = *searchTerm
	cfg.Tracker.Limit = *limit
	cfg.Tracker.Strategy = *strategy
	cfg.Tracker.DBPath = *dbPath

	setupLogging(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, *output, *noTags); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, output string, noTags bool) error {
	ctx := context.Background()

	prov, err := tracker.BuildProvider(buildFactoryOptions(cfg))
	if err != nil {
		return err
	}
	t := tracker.New(prov)
	defer t.Close()

	store, err := database.Open(cfg.Tracker.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	runner := scheduler.NewRunner(t, store, scheduler.Config{
		SearchTerm:    cfg.Tracker.SearchTerm,
		Limit:         cfg.Tracker.Limit,
		RetryAttempts: cfg.Scheduler.RetryAttempts,
		RetryBackoff:  cfg.Scheduler.RetryBackoff,
	})
	if !noTags {
		runner.WithTagger(tagging.FromConfig(cfg.Tagging.APIKey, tagging.LLMOptions{
			BaseURL: cfg.Tagging.BaseURL,
			Model:   cfg.Tagging.Model,
			Timeout: cfg.Tagging.Timeout,
		}))
	}

	outcome, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}

	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome.Result)
	case "markdown":
		title := fmt.Sprintf("Product Hunt digest for %q", cfg.Tracker.SearchTerm)
		fmt.Print(format.NewNewsletter(title, outcome.Result.Products).Markdown())
	default:
		format.RenderTable(os.Stdout, outcome.Result.Products)
	}

	if !outcome.Result.OK() {
		fmt.Fprintf(os.Stderr, "fetch from %s failed: %s\n", outcome.Result.Source, outcome.Result.Error)
	}
	fmt.Fprintf(os.Stderr, "run %d recorded with status %s\n", outcome.RunID, outcome.Status)
	return nil
}

func buildFactoryOptions(cfg *config.Config) tracker.FactoryOptions {
	return tracker.FactoryOptions{
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
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
