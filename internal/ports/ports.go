package ports

import (
	"context"
	"errors"
	"time"

	"NewsCollector/internal/domain"
)

// ErrDuplicate marks an insert rejected by the unique source-URL constraint.
// Callers treat it as "already exists, skip", not as a failure.
var ErrDuplicate = errors.New("article already exists")

// ErrNoCredentials marks a mail collaborator that has no usable credentials.
var ErrNoCredentials = errors.New("mail credentials not available")

// ArticleRepository persists canonical articles behind a unique-URL constraint.
type ArticleRepository interface {
	FindBySourceURL(ctx context.Context, url string) (*domain.Article, error)
	Save(ctx context.Context, article domain.Article) error
}

// RunLog records fetch-run audit rows. Recording the same run ID again
// replaces the previous row, which is how a started run gets finalized.
type RunLog interface {
	RecordRun(ctx context.Context, run domain.FetchRun) error
}

// SourceStore keeps per-source fetch state between sweeps.
type SourceStore interface {
	LastFetched(ctx context.Context, name string) (*time.Time, error)
	MarkFetched(ctx context.Context, name string, at time.Time) error
}

// MailSearcher is the mail-provider collaborator behind the gmail extractor.
// Implementations return ErrNoCredentials when no token is available.
type MailSearcher interface {
	Search(ctx context.Context, query string, maxResults, daysBack int) ([]string, error)
	FetchDetails(ctx context.Context, id string) (domain.MailMessage, error)
}

// SiteClassifier infers acquisition metadata for a bare URL.
type SiteClassifier interface {
	Analyze(ctx context.Context, url string) domain.SiteInfo
}

// Summarizer enriches a persisted article after acquisition.
type Summarizer interface {
	Summarize(ctx context.Context, article domain.Article) (string, error)
}

// Retention deletes aged articles and run logs.
type Retention interface {
	Cleanup(ctx context.Context, articlesBefore, runsBefore time.Time) (articles, runs int64, err error)
}

// Scheduler drives recurring sweeps at cron cadences.
type Scheduler interface {
	Schedule(spec string, job func(time.Time)) error
	Start()
	Stop(ctx context.Context) error
}
