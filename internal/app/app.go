package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsCollector/internal/analyzer"
	"NewsCollector/internal/config"
	"NewsCollector/internal/extractor"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/infrastructure/gmail"
	"NewsCollector/internal/infrastructure/llm"
	"NewsCollector/internal/infrastructure/scheduler"
	"NewsCollector/internal/infrastructure/scrape"
	"NewsCollector/internal/infrastructure/storage"
	"NewsCollector/internal/logging"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	repo      *storage.SQLiteRepository
	scheduler *usecase.Scheduler
	logger    *slog.Logger
}

// New builds a runnable application instance. Missing Gmail credentials are
// tolerated: gmail sources then fail their runs while everything else keeps
// working.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	repo, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	fetcher := fetch.NewClient(&http.Client{Timeout: cfg.HTTP.Timeout()})

	var searcher ports.MailSearcher
	mail, err := gmail.New(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile,
		baseLogger.With("component", "gmail"))
	switch {
	case errors.Is(err, ports.ErrNoCredentials):
		baseLogger.Warn("gmail disabled", "error", err)
	case err != nil:
		repo.Close()
		return nil, fmt.Errorf("build gmail client: %w", err)
	default:
		if err := mail.CheckConnection(ctx); err != nil {
			baseLogger.Warn("gmail connection check failed", "error", err)
		}
		searcher = mail
	}

	registry := extractor.NewRegistry()
	registry.Register(scrape.NewRSS(fetcher, baseLogger.With("component", "extractor.rss")))
	registry.Register(scrape.NewGeneric(fetcher, baseLogger.With("component", "extractor.generic")))
	registry.Register(scrape.NewSubstack(fetcher, baseLogger.With("component", "extractor.substack")))
	registry.Register(scrape.NewNewsletter(fetcher, baseLogger.With("component", "extractor.newsletter")))
	registry.Register(scrape.NewMailchimp(fetcher, baseLogger.With("component", "extractor.mailchimp")))
	registry.Register(scrape.NewBlog(fetcher, baseLogger.With("component", "extractor.blog")))
	registry.Register(scrape.NewGmail(searcher, baseLogger.With("component", "extractor.gmail")))

	var summarizer ports.Summarizer
	if cfg.ChatGPT.APIKey != "" {
		summarizer = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	acq := usecase.NewAcquisition(usecase.AcquisitionDeps{
		Registry:    registry,
		Classifier:  analyzer.New(fetcher, baseLogger.With("component", "analyzer")),
		Articles:    repo,
		Runs:        repo,
		Sources:     repo,
		Summarizer:  summarizer,
		Concurrency: cfg.Scheduler.Concurrency,
		Logger:      baseLogger.With("component", "acquisition"),
	})

	plan := usecase.SweepPlan{
		PrimarySpec: cfg.Scheduler.PrimaryCron,
		CustomSpec:  cfg.Scheduler.CustomCron,
		CleanupSpec: cfg.Scheduler.CleanupCron,
		Primary:     cfg.PrimarySources(),
		Custom:      cfg.CustomSources(),
	}
	sched := usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.Location()),
		acq, repo, plan, baseLogger.With("component", "scheduler"))

	return &Application{cfg: cfg, repo: repo, scheduler: sched, logger: baseLogger}, nil
}

// Run starts the recurring sweeps and blocks until the context is cancelled,
// then tears down the scheduler and storage.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		a.repo.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("newscollector started",
		"primary_feeds", len(a.cfg.Feeds), "custom_sources", len(a.cfg.Sources))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Error("scheduler stop failed", "error", err)
	}
	if err := a.repo.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
