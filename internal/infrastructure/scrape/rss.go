package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/metadata"
)

const defaultFeedLimit = 10

// RSS extracts articles from RSS/Atom feeds.
type RSS struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

// NewRSS wires the shared fetch client.
func NewRSS(fetcher *fetch.Client, logger *slog.Logger) *RSS {
	return &RSS{fetcher: fetcher, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (r *RSS) Kind() domain.SourceKind { return domain.KindRSS }

// Extract fetches the feed and maps its entries to canonical articles.
func (r *RSS) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	body, err := r.fetcher.Get(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	limit := src.MaxItems
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	sourceName := src.Name
	if sourceName == "" {
		sourceName = feed.Title
	}

	articles := make([]domain.Article, 0, min(limit, len(feed.Items)))
	for _, item := range feed.Items {
		if len(articles) == limit {
			break
		}
		if item.Link == "" {
			r.debug("feed entry without link skipped", "source", src.Name, "title", item.Title)
			continue
		}

		articles = append(articles, r.entryToArticle(src, sourceName, item))
	}

	return articles, nil
}

func (r *RSS) entryToArticle(src domain.Source, sourceName string, item *gofeed.Item) domain.Article {
	content := item.Content
	if content == "" {
		content = item.Description
	}

	description := plainText(item.Description)
	if description == "" {
		description = plainText(content)
	}

	var publishedAt = metadata.ParseDate(item.Published)
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		publishedAt = *item.UpdatedParsed
	}

	author := ""
	if item.Author != nil {
		author = item.Author.Name
	}

	language := src.Language
	if language == "" {
		language = metadata.DetectLanguage(item.Title + " " + description)
	}

	category := src.Category
	if category == "" {
		category = "technology"
	}

	article := domain.Article{
		Source:      sourceName,
		SourceURL:   item.Link,
		Title:       item.Title,
		Description: truncate(description, descriptionLimit),
		Content:     content,
		Author:      author,
		PublishedAt: publishedAt,
		Language:    language,
		Category:    category,
		Tags:        capTags(domain.MaxTags, src.Tags, item.Categories),
	}
	if item.Image != nil {
		article.ImageURL = item.Image.URL
	}

	return article
}

func (r *RSS) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
