package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/extractor"
	"NewsCollector/internal/ports"
)

type fakeRepo struct {
	mu       sync.Mutex
	articles map[string]domain.Article
	saveErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{articles: map[string]domain.Article{}}
}

func (r *fakeRepo) FindBySourceURL(ctx context.Context, url string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.articles[url]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r *fakeRepo) Save(ctx context.Context, article domain.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.articles[article.SourceURL]; ok {
		return ports.ErrDuplicate
	}
	r.articles[article.SourceURL] = article
	return nil
}

type fakeRunLog struct {
	mu   sync.Mutex
	runs map[string][]domain.FetchRun
}

func newFakeRunLog() *fakeRunLog {
	return &fakeRunLog{runs: map[string][]domain.FetchRun{}}
}

func (l *fakeRunLog) RecordRun(ctx context.Context, run domain.FetchRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[run.ID] = append(l.runs[run.ID], run)
	return nil
}

// last returns the final recorded state of every run.
func (l *fakeRunLog) last() []domain.FetchRun {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.FetchRun
	for _, versions := range l.runs {
		out = append(out, versions[len(versions)-1])
	}
	return out
}

type fakeSourceStore struct {
	mu      sync.Mutex
	fetched map[string]time.Time
}

func newFakeSourceStore() *fakeSourceStore {
	return &fakeSourceStore{fetched: map[string]time.Time{}}
}

func (s *fakeSourceStore) LastFetched(ctx context.Context, name string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.fetched[name]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *fakeSourceStore) MarkFetched(ctx context.Context, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched[name] = at
	return nil
}

type listExtractor struct {
	kind     domain.SourceKind
	articles []domain.Article
	err      error
}

func (e *listExtractor) Kind() domain.SourceKind { return e.kind }
func (e *listExtractor) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	return e.articles, e.err
}

func testArticles(urls ...string) []domain.Article {
	var out []domain.Article
	for _, u := range urls {
		out = append(out, domain.Article{
			Source:    "src",
			SourceURL: u,
			Title:     "t " + u,
			Content:   "c",
		})
	}
	return out
}

func newTestAcquisition(reg *extractor.Registry, repo *fakeRepo, runs *fakeRunLog, store *fakeSourceStore, now time.Time) *Acquisition {
	deps := AcquisitionDeps{
		Registry: reg,
		Articles: repo,
		Runs:     runs,
		Clock:    func() time.Time { return now },
	}
	if store != nil {
		deps.Sources = store
	}
	return NewAcquisition(deps)
}

func TestRunSavesNewArticles(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS, articles: testArticles("https://a/1", "https://a/2")})

	repo := newFakeRepo()
	runs := newFakeRunLog()
	store := newFakeSourceStore()
	acq := newTestAcquisition(reg, repo, runs, store, now)

	sources := []domain.Source{{Name: "feed", URL: "https://a/feed", Kind: domain.KindRSS, Enabled: true}}

	summary := acq.Run(context.Background(), sources)

	if summary.SourcesDue != 1 || summary.ItemsFound != 2 || summary.ItemsSaved != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(repo.articles) != 2 {
		t.Fatalf("expected 2 saved articles, got %d", len(repo.articles))
	}

	finals := runs.last()
	if len(finals) != 1 {
		t.Fatalf("expected one run record, got %d", len(finals))
	}
	run := finals[0]
	if run.Status != domain.RunSuccess {
		t.Fatalf("expected success, got %s", run.Status)
	}
	if run.ItemsFound != 2 || run.ItemsSaved != 2 {
		t.Fatalf("unexpected run counters: %+v", run)
	}

	if _, ok := store.fetched["feed"]; !ok {
		t.Fatal("expected the source to be marked fetched")
	}
}

func TestRunSecondSweepIsIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS, articles: testArticles("https://a/1", "https://a/2")})

	repo := newFakeRepo()
	acq := newTestAcquisition(reg, repo, newFakeRunLog(), nil, now)

	sources := []domain.Source{{Name: "feed", URL: "https://a/feed", Kind: domain.KindRSS, Enabled: true}}

	first := acq.Run(context.Background(), sources)
	second := acq.Run(context.Background(), sources)

	if first.ItemsSaved != 2 {
		t.Fatalf("first sweep saved %d", first.ItemsSaved)
	}
	if second.ItemsSaved != 0 {
		t.Fatalf("second sweep must save nothing, saved %d", second.ItemsSaved)
	}
	if second.SourcesFailed != 0 {
		t.Fatalf("duplicates are not failures: %+v", second)
	}
	if len(repo.articles) != 2 {
		t.Fatalf("expected 2 articles total, got %d", len(repo.articles))
	}
}

func TestRunDueCheck(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Minute)
	stale := now.Add(-25 * time.Hour)

	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS, articles: testArticles("https://a/1")})

	acq := newTestAcquisition(reg, newFakeRepo(), newFakeRunLog(), nil, now)

	sources := []domain.Source{
		{Name: "fresh", URL: "https://a", Kind: domain.KindRSS, Enabled: true,
			FetchIntervalHours: 24, LastFetchedAt: &recent},
		{Name: "stale", URL: "https://b", Kind: domain.KindRSS, Enabled: true,
			FetchIntervalHours: 24, LastFetchedAt: &stale},
		{Name: "never", URL: "https://c", Kind: domain.KindRSS, Enabled: true,
			FetchIntervalHours: 24},
		{Name: "disabled", URL: "https://d", Kind: domain.KindRSS, Enabled: false},
	}

	summary := acq.Run(context.Background(), sources)

	if summary.SourcesDue != 2 {
		t.Fatalf("expected stale and never-fetched to be due, got %d", summary.SourcesDue)
	}
	if summary.SourcesSkipped != 2 {
		t.Fatalf("expected fresh and disabled to be skipped, got %d", summary.SourcesSkipped)
	}
}

func TestRunHydratesStateFromStore(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSourceStore()
	store.fetched["feed"] = now.Add(-10 * time.Minute)

	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS, articles: testArticles("https://a/1")})

	acq := newTestAcquisition(reg, newFakeRepo(), newFakeRunLog(), store, now)

	sources := []domain.Source{{Name: "feed", URL: "https://a", Kind: domain.KindRSS,
		Enabled: true, FetchIntervalHours: 24}}

	summary := acq.Run(context.Background(), sources)
	if summary.SourcesDue != 0 || summary.SourcesSkipped != 1 {
		t.Fatalf("stored fetch state should defer the source: %+v", summary)
	}
}

func TestRunExtractorFailureFinalizesRun(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS, err: errors.New("feed unreachable")})

	runs := newFakeRunLog()
	store := newFakeSourceStore()
	acq := newTestAcquisition(reg, newFakeRepo(), runs, store, now)

	sources := []domain.Source{{Name: "feed", URL: "https://a", Kind: domain.KindRSS, Enabled: true}}

	summary := acq.Run(context.Background(), sources)
	if summary.SourcesFailed != 1 {
		t.Fatalf("expected 1 failed source, got %+v", summary)
	}

	finals := runs.last()
	if len(finals) != 1 {
		t.Fatalf("expected one run record, got %d", len(finals))
	}
	run := finals[0]
	if run.Status != domain.RunFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Fatal("expected the error message to be recorded")
	}

	if _, ok := store.fetched["feed"]; ok {
		t.Fatal("a failed source must not be marked fetched")
	}
}

func TestRunPartialStatusOnItemFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	articles := testArticles("https://a/1")
	articles = append(articles, domain.Article{Source: "src", Title: "no url"})

	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS, articles: articles})

	runs := newFakeRunLog()
	acq := newTestAcquisition(reg, newFakeRepo(), runs, nil, now)

	sources := []domain.Source{{Name: "feed", URL: "https://a", Kind: domain.KindRSS, Enabled: true}}

	summary := acq.Run(context.Background(), sources)
	if summary.ItemsSaved != 1 {
		t.Fatalf("expected the good item saved, got %+v", summary)
	}

	run := runs.last()[0]
	if run.Status != domain.RunPartial {
		t.Fatalf("expected partial status, got %s", run.Status)
	}
	if run.ItemsProcessed != 2 || run.ItemsSaved != 1 {
		t.Fatalf("unexpected counters: %+v", run)
	}
}

func TestRunHonorsMaxItems(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS,
		articles: testArticles("https://a/1", "https://a/2", "https://a/3")})

	repo := newFakeRepo()
	acq := newTestAcquisition(reg, repo, newFakeRunLog(), nil, now)

	sources := []domain.Source{{Name: "feed", URL: "https://a", Kind: domain.KindRSS,
		Enabled: true, MaxItems: 2}}

	summary := acq.Run(context.Background(), sources)
	if summary.ItemsFound != 2 || summary.ItemsSaved != 2 {
		t.Fatalf("expected the item cap applied, got %+v", summary)
	}
}

func TestRunRecordsGmailQueryForAudit(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindGmail, articles: testArticles("gmail://message/m1")})

	runs := newFakeRunLog()
	acq := newTestAcquisition(reg, newFakeRepo(), runs, nil, now)

	sources := []domain.Source{{
		Name:    "list",
		Kind:    domain.KindGmail,
		Enabled: true,
		Gmail:   &domain.GmailFilter{From: "a@b.example", SubjectKeywords: []string{"digest"}},
	}}

	acq.Run(context.Background(), sources)

	run := runs.last()[0]
	if run.Query != "from:a@b.example subject:digest" {
		t.Fatalf("unexpected audit query: %q", run.Query)
	}
}

type countingSummarizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSummarizer) Summarize(ctx context.Context, article domain.Article) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return "summary", s.err
}

func TestRunSummarizerFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS, articles: testArticles("https://a/1")})

	summarizer := &countingSummarizer{err: errors.New("quota exceeded")}
	acq := NewAcquisition(AcquisitionDeps{
		Registry:   reg,
		Articles:   newFakeRepo(),
		Runs:       newFakeRunLog(),
		Summarizer: summarizer,
		Clock:      func() time.Time { return now },
	})

	sources := []domain.Source{{Name: "feed", URL: "https://a", Kind: domain.KindRSS, Enabled: true}}

	summary := acq.Run(context.Background(), sources)
	if summary.ItemsSaved != 1 || summary.SourcesFailed != 0 {
		t.Fatalf("summarizer failure must not fail the run: %+v", summary)
	}
	if summarizer.calls != 1 {
		t.Fatalf("expected one summarize call, got %d", summarizer.calls)
	}
}
