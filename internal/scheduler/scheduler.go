// Package scheduler runs fetch-and-persist cycles, retrying transient
// failures with bounded attempts and backoff, and classifies each run as
// success, partial, or failure before persisting it.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/maltedev/ph-ai-tracker/internal/database"
	"github.com/maltedev/ph-ai-tracker/internal/models"
	"github.com/maltedev/ph-ai-tracker/internal/tagging"
	"github.com/maltedev/ph-ai-tracker/internal/tracker"
)

// Config holds the per-cycle settings.
type Config struct {
	SearchTerm    string
	Limit         int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// RunResult is the outcome of one RunOnce call.
type RunResult struct {
	RunID    int64
	Result   models.FetchResult
	Status   database.RunStatus
	Attempts int
}

// Runner executes cycles against one tracker and one store.
type Runner struct {
	tracker *tracker.Tracker
	store   *database.Store
	cfg     Config
	tagger  tagging.Service
	logger  *slog.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

func NewRunner(t *tracker.Tracker, store *database.Store, cfg Config) *Runner {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &Runner{
		tracker: t,
		store:   store,
		cfg:     cfg,
		logger:  slog.Default().With("component", "scheduler"),
		sleep:   time.Sleep,
	}
}

// WithTagger enables tag enrichment on fetched products. Tagging failures
// never affect the run outcome.
func (r *Runner) WithTagger(s tagging.Service) *Runner {
	r.tagger = s
	return r
}

// RunOnce executes one full fetch-and-persist cycle.
func (r *Runner) RunOnce(ctx context.Context) (RunResult, error) {
	result, attempts, err := r.fetchWithRetries(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if r.tagger != nil && result.OK() {
		for i, p := range result.Products {
			if tags := r.tagger.Categorize(ctx, p); len(tags) > 0 {
				result.Products[i] = p.WithTags(tags)
			}
		}
	}
	status := database.DeriveStatus(result)
	runID, err := r.store.SaveResult(ctx, result, status)
	if err != nil {
		return RunResult{}, err
	}
	r.logger.Info("run complete",
		"run_id", runID, "status", string(status), "source", result.Source,
		"attempts", attempts, "fetched", len(result.Products), "error", result.Error)
	return RunResult{RunID: runID, Result: result, Status: status, Attempts: attempts}, nil
}

// fetchWithRetries retries only transient failures, up to RetryAttempts
// total attempts.
func (r *Runner) fetchWithRetries(ctx context.Context) (models.FetchResult, int, error) {
	var result models.FetchResult
	for attempt := 1; attempt <= r.cfg.RetryAttempts; attempt++ {
		var err error
		result, err = r.tracker.GetProducts(ctx, r.cfg.SearchTerm, r.cfg.Limit)
		if err != nil {
			return models.FetchResult{}, attempt, err
		}
		if result.OK() || !result.Transient || attempt == r.cfg.RetryAttempts {
			return result, attempt, nil
		}
		r.logger.Warn("transient failure, retrying",
			"attempt", attempt, "backoff", r.cfg.RetryBackoff, "error", result.Error)
		r.sleep(r.cfg.RetryBackoff)
	}
	return result, r.cfg.RetryAttempts, nil
}

// Start blocks, running one cycle per cron tick until ctx is done. The
// schedule is a standard five-field cron expression, validated up front.
func (r *Runner) Start(ctx context.Context, schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return &tracker.ConfigError{Msg: "invalid cron schedule " + schedule + ": " + err.Error()}
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return &tracker.ConfigError{Msg: "failed to register schedule: " + err.Error()}
	}
	c.Start()
	defer c.Stop()

	r.logger.Info("scheduler started", "schedule", schedule)
	<-ctx.Done()
	return ctx.Err()
}
