package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    source       TEXT NOT NULL,
    source_url   TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    description  TEXT,
    content      TEXT,
    author       TEXT,
    published_at TEXT,
    language     TEXT,
    category     TEXT,
    tags         TEXT,
    image_url    TEXT,
    created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS fetch_runs (
    id               TEXT PRIMARY KEY,
    source           TEXT NOT NULL,
    started_at       TEXT NOT NULL,
    items_found      INTEGER NOT NULL DEFAULT 0,
    items_processed  INTEGER NOT NULL DEFAULT 0,
    items_saved      INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL,
    error_message    TEXT,
    duration_seconds REAL NOT NULL DEFAULT 0,
    query            TEXT
);

CREATE TABLE IF NOT EXISTS source_state (
    name            TEXT PRIMARY KEY,
    last_fetched_at TEXT NOT NULL
);
`

// SQLiteRepository persists articles, fetch runs, and per-source fetch state.
// The unique index on source_url is what makes concurrent dedup safe: a
// losing insert surfaces as ports.ErrDuplicate.
type SQLiteRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.ArticleRepository = (*SQLiteRepository)(nil)
	_ ports.RunLog            = (*SQLiteRepository)(nil)
	_ ports.SourceStore       = (*SQLiteRepository)(nil)
	_ ports.Retention         = (*SQLiteRepository)(nil)
)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// FindBySourceURL returns the stored article with the given dedup key, or nil.
func (r *SQLiteRepository) FindBySourceURL(ctx context.Context, url string) (*domain.Article, error) {
	query, args, err := r.builder.
		Select("source", "source_url", "title", "description", "content",
			"author", "published_at", "language", "category", "tags", "image_url").
		From("articles").
		Where(sq.Eq{"source_url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lookup: %w", err)
	}

	var (
		article     domain.Article
		publishedAt string
		tags        sql.NullString
	)
	row := r.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&article.Source, &article.SourceURL, &article.Title,
		&article.Description, &article.Content, &article.Author,
		&publishedAt, &article.Language, &article.Category, &tags, &article.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan article: %w", err)
	}

	article.PublishedAt, _ = time.Parse(time.RFC3339, publishedAt)
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &article.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}

	return &article, nil
}

// Save inserts a new article; an existing source_url yields ports.ErrDuplicate.
func (r *SQLiteRepository) Save(ctx context.Context, article domain.Article) error {
	tags, err := json.Marshal(article.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query, args, err := r.builder.
		Insert("articles").
		Columns("source", "source_url", "title", "description", "content",
			"author", "published_at", "language", "category", "tags", "image_url").
		Values(article.Source, article.SourceURL, article.Title,
			article.Description, article.Content, article.Author,
			article.PublishedAt.UTC().Format(time.RFC3339),
			article.Language, article.Category, string(tags), article.ImageURL).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("insert article: %w", err)
	}

	return nil
}

// RecordRun upserts a fetch-run row, so finalizing a started run replaces it.
func (r *SQLiteRepository) RecordRun(ctx context.Context, run domain.FetchRun) error {
	query, args, err := r.builder.
		Insert("fetch_runs").
		Columns("id", "source", "started_at", "items_found", "items_processed",
			"items_saved", "status", "error_message", "duration_seconds", "query").
		Values(run.ID, run.Source, run.StartedAt.UTC().Format(time.RFC3339),
			run.ItemsFound, run.ItemsProcessed, run.ItemsSaved,
			string(run.Status), run.ErrorMessage, run.DurationSeconds, run.Query).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
            items_found = excluded.items_found,
            items_processed = excluded.items_processed,
            items_saved = excluded.items_saved,
            status = excluded.status,
            error_message = excluded.error_message,
            duration_seconds = excluded.duration_seconds`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// RunsForSource returns the recorded runs for one source, newest first.
func (r *SQLiteRepository) RunsForSource(ctx context.Context, source string, limit int) ([]domain.FetchRun, error) {
	builder := r.builder.
		Select("id", "source", "started_at", "items_found", "items_processed",
			"items_saved", "status", "error_message", "duration_seconds", "query").
		From("fetch_runs").
		Where(sq.Eq{"source": source}).
		OrderBy("started_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.FetchRun
	for rows.Next() {
		var (
			run       domain.FetchRun
			startedAt string
			status    string
		)
		err := rows.Scan(&run.ID, &run.Source, &startedAt, &run.ItemsFound,
			&run.ItemsProcessed, &run.ItemsSaved, &status, &run.ErrorMessage,
			&run.DurationSeconds, &run.Query)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.Status = domain.RunStatus(status)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LastFetched returns when the named source was last fetched, or nil.
func (r *SQLiteRepository) LastFetched(ctx context.Context, name string) (*time.Time, error) {
	query, args, err := r.builder.
		Select("last_fetched_at").
		From("source_state").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build state query: %w", err)
	}

	var raw string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan state: %w", err)
	}

	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parse state timestamp: %w", err)
	}
	return &at, nil
}

// MarkFetched records the latest fetch instant for a source.
func (r *SQLiteRepository) MarkFetched(ctx context.Context, name string, at time.Time) error {
	query, args, err := r.builder.
		Insert("source_state").
		Columns("name", "last_fetched_at").
		Values(name, at.UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(name) DO UPDATE SET last_fetched_at = excluded.last_fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build state upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Cleanup deletes articles created before articlesBefore and runs started
// before runsBefore, returning how many rows each delete removed.
func (r *SQLiteRepository) Cleanup(ctx context.Context, articlesBefore, runsBefore time.Time) (int64, int64, error) {
	articles, err := r.deleteBefore(ctx, "articles", "created_at", articlesBefore)
	if err != nil {
		return 0, 0, fmt.Errorf("cleanup articles: %w", err)
	}

	runs, err := r.deleteBefore(ctx, "fetch_runs", "started_at", runsBefore)
	if err != nil {
		return articles, 0, fmt.Errorf("cleanup runs: %w", err)
	}

	return articles, runs, nil
}

func (r *SQLiteRepository) deleteBefore(ctx context.Context, table, column string, cutoff time.Time) (int64, error) {
	query, args, err := r.builder.
		Delete(table).
		Where(sq.Lt{column: cutoff.UTC().Format(time.RFC3339)}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
