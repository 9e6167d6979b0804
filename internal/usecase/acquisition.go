package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/extractor"
	"NewsCollector/internal/ports"
)

const defaultConcurrency = 4

// ItemResult records the outcome for one extracted item, so failures stay
// inspectable instead of vanishing into logs.
type ItemResult struct {
	SourceURL string
	Saved     bool
	Duplicate bool
	Err       error
}

// SourceResult aggregates one source's run.
type SourceResult struct {
	Source string
	Run    domain.FetchRun
	Items  []ItemResult
}

// RunSummary aggregates one acquisition sweep.
type RunSummary struct {
	SourcesDue     int
	SourcesSkipped int
	SourcesFailed  int
	ItemsFound     int
	ItemsSaved     int
	Results        []SourceResult
}

// AcquisitionDeps wires all driven adapters into the orchestration component.
type AcquisitionDeps struct {
	Registry    *extractor.Registry
	Classifier  ports.SiteClassifier
	Articles    ports.ArticleRepository
	Runs        ports.RunLog
	Sources     ports.SourceStore
	Summarizer  ports.Summarizer
	Clock       func() time.Time
	Concurrency int
	Logger      *slog.Logger
}

// Acquisition runs acquisition sweeps over configured sources. Sweeps for
// distinct sources may overlap up to the concurrency limit; two sweeps never
// work the same source at once.
type Acquisition struct {
	registry    *extractor.Registry
	classifier  ports.SiteClassifier
	articles    ports.ArticleRepository
	runs        ports.RunLog
	sources     ports.SourceStore
	summarizer  ports.Summarizer
	clock       func() time.Time
	concurrency int
	logger      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAcquisition constructs the orchestration component.
func NewAcquisition(deps AcquisitionDeps) *Acquisition {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Acquisition{
		registry:    deps.Registry,
		classifier:  deps.Classifier,
		articles:    deps.Articles,
		runs:        deps.Runs,
		sources:     deps.Sources,
		summarizer:  deps.Summarizer,
		clock:       clock,
		concurrency: concurrency,
		logger:      deps.Logger,
		locks:       map[string]*sync.Mutex{},
	}
}

// Run sweeps the given sources: filters to those due, runs each due source's
// extractor, and persists what came back. One bad source or item never aborts
// the sweep; the returned summary and the run log carry the outcomes.
func (a *Acquisition) Run(ctx context.Context, sources []domain.Source) RunSummary {
	now := a.clock()

	summary := RunSummary{}
	var due []domain.Source
	for _, src := range sources {
		src = a.hydrate(ctx, src)
		if !src.Due(now) {
			summary.SourcesSkipped++
			a.debug("source not due", "source", src.Name)
			continue
		}
		due = append(due, src)
	}
	summary.SourcesDue = len(due)

	var summaryMu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)

	for _, src := range due {
		// Abortable between sources at shutdown.
		if ctx.Err() != nil {
			break
		}

		src := src
		group.Go(func() error {
			result, ok := a.acquireSource(groupCtx, src)
			if !ok {
				return nil
			}

			summaryMu.Lock()
			defer summaryMu.Unlock()
			summary.Results = append(summary.Results, result)
			summary.ItemsFound += result.Run.ItemsFound
			summary.ItemsSaved += result.Run.ItemsSaved
			if result.Run.Status == domain.RunFailed {
				summary.SourcesFailed++
			}
			return nil
		})
	}

	_ = group.Wait()
	return summary
}

// hydrate fills LastFetchedAt from the source store when config has none.
func (a *Acquisition) hydrate(ctx context.Context, src domain.Source) domain.Source {
	if src.LastFetchedAt != nil || a.sources == nil {
		return src
	}
	last, err := a.sources.LastFetched(ctx, src.Name)
	if err != nil {
		a.warn("load fetch state", "source", src.Name, "error", err)
		return src
	}
	src.LastFetchedAt = last
	return src
}

// acquireSource runs one source end to end. The second return value is false
// when another run already holds this source.
func (a *Acquisition) acquireSource(ctx context.Context, src domain.Source) (SourceResult, bool) {
	lock := a.sourceLock(src.Name)
	if !lock.TryLock() {
		a.debug("source busy, skipping overlapping run", "source", src.Name)
		return SourceResult{}, false
	}
	defer lock.Unlock()

	startedAt := a.clock()
	run := domain.FetchRun{
		ID:        uuid.NewString(),
		Source:    src.Name,
		StartedAt: startedAt,
		Status:    domain.RunStarted,
		Query:     a.auditQuery(src),
	}
	a.record(ctx, run)

	// Finalization happens on every path out of extract/process.
	result := SourceResult{Source: src.Name}

	src = a.resolveKind(ctx, src)

	ext, err := a.registry.Resolve(src)
	if err != nil {
		run = a.finalize(ctx, run, domain.RunFailed, err)
		result.Run = run
		return result, true
	}

	items, err := ext.Extract(ctx, src)
	if err != nil {
		run = a.finalize(ctx, run, domain.RunFailed, err)
		result.Run = run
		return result, true
	}

	if src.MaxItems > 0 && len(items) > src.MaxItems {
		items = items[:src.MaxItems]
	}
	run.ItemsFound = len(items)

	failures := 0
	for _, item := range items {
		itemResult := a.processItem(ctx, item)
		result.Items = append(result.Items, itemResult)
		run.ItemsProcessed++
		if itemResult.Saved {
			run.ItemsSaved++
		}
		if itemResult.Err != nil {
			failures++
		}
	}

	status := domain.RunSuccess
	if failures > 0 {
		status = domain.RunPartial
	}
	run = a.finalize(ctx, run, status, nil)
	result.Run = run

	if a.sources != nil {
		if err := a.sources.MarkFetched(ctx, src.Name, a.clock()); err != nil {
			a.warn("mark fetched", "source", src.Name, "error", err)
		}
	}

	a.debug("source done", "source", src.Name,
		"found", run.ItemsFound, "saved", run.ItemsSaved, "status", run.Status)
	return result, true
}

// processItem attempts persistence for one article, isolated from its peers.
// A duplicate source URL is a normal skip, not an error.
func (a *Acquisition) processItem(ctx context.Context, article domain.Article) ItemResult {
	result := ItemResult{SourceURL: article.SourceURL}

	if article.SourceURL == "" {
		result.Err = fmt.Errorf("article %q has no source url", article.Title)
		a.warn("item rejected", "title", article.Title, "error", result.Err)
		return result
	}

	existing, err := a.articles.FindBySourceURL(ctx, article.SourceURL)
	if err != nil {
		result.Err = fmt.Errorf("dedup lookup: %w", err)
		a.warn("item failed", "url", article.SourceURL, "error", result.Err)
		return result
	}
	if existing != nil {
		result.Duplicate = true
		return result
	}

	if err := a.articles.Save(ctx, article); err != nil {
		// A concurrent sweep may have won the insert race; the unique
		// constraint turns that into a skip.
		if errors.Is(err, ports.ErrDuplicate) {
			result.Duplicate = true
			return result
		}
		result.Err = fmt.Errorf("save article: %w", err)
		a.warn("item failed", "url", article.SourceURL, "error", result.Err)
		return result
	}
	result.Saved = true

	if a.summarizer != nil {
		if _, err := a.summarizer.Summarize(ctx, article); err != nil {
			a.warn("summary enrichment failed", "url", article.SourceURL, "error", err)
		}
	}

	return result
}

// resolveKind classifies sources configured without a kind and backfills
// whatever metadata the classifier can supply.
func (a *Acquisition) resolveKind(ctx context.Context, src domain.Source) domain.Source {
	if src.Kind != "" || a.classifier == nil {
		return src
	}

	info := a.classifier.Analyze(ctx, src.URL)
	src.Kind = extractor.KindForSiteType(info.SiteType)
	if src.Name == "" {
		src.Name = info.Name
	}
	if src.Language == "" {
		src.Language = info.Language
	}
	if src.Category == "" {
		src.Category = info.Category
	}
	if len(src.Tags) == 0 {
		src.Tags = info.Tags
	}

	a.debug("source classified", "source", src.Name, "kind", src.Kind)
	return src
}

func (a *Acquisition) finalize(ctx context.Context, run domain.FetchRun, status domain.RunStatus, cause error) domain.FetchRun {
	run.Status = status
	if cause != nil {
		run.ErrorMessage = cause.Error()
		a.warn("source failed", "source", run.Source, "error", cause)
	}
	run.DurationSeconds = a.clock().Sub(run.StartedAt).Seconds()
	a.record(ctx, run)
	return run
}

func (a *Acquisition) record(ctx context.Context, run domain.FetchRun) {
	if a.runs == nil {
		return
	}
	if err := a.runs.RecordRun(ctx, run); err != nil {
		a.warn("record run", "source", run.Source, "error", err)
	}
}

func (a *Acquisition) auditQuery(src domain.Source) string {
	if src.Gmail != nil {
		return src.Gmail.Query()
	}
	return src.URL
}

func (a *Acquisition) sourceLock(name string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[name] = lock
	}
	return lock
}

func (a *Acquisition) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Acquisition) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
