package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/metadata"
)

// newsletterSelectors are tried in order for the content container.
var newsletterSelectors = []string{
	"main",
	".email-content",
	".newsletter-content",
	`[role="main"]`,
	"article",
	".content",
}

// Newsletter extracts a single-page HTML newsletter. No link enumeration:
// the page itself is the issue.
type Newsletter struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

// NewNewsletter wires the shared fetch client.
func NewNewsletter(fetcher *fetch.Client, logger *slog.Logger) *Newsletter {
	return &Newsletter{fetcher: fetcher, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (n *Newsletter) Kind() domain.SourceKind { return domain.KindNewsletter }

// Extract turns the page into one article.
func (n *Newsletter) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	doc, err := n.fetcher.Document(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch newsletter: %w", err)
	}

	title := normalizeSpace(doc.Find("title").First().Text())
	if title == "" {
		title = normalizeSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = "Newsletter"
	}

	content := firstMatchText(doc, newsletterSelectors)
	if content == "" {
		doc.Find("script, style, nav, header, footer").Remove()
		content = normalizeSpace(doc.Find("body").Text())
	}

	publishedAt, found := metadata.DateFromDocument(doc)
	if !found {
		publishedAt = time.Now().UTC()
	}

	language := src.Language
	if language == "" {
		language = metadata.DetectLanguage(title + " " + content)
	}
	category := src.Category
	if category == "" {
		category = "newsletter"
	}

	return []domain.Article{{
		Source:      src.Name,
		SourceURL:   src.URL,
		Title:       title,
		Description: truncate(content, previewLimit),
		Content:     content,
		PublishedAt: publishedAt,
		Language:    language,
		Category:    category,
		Tags:        capTags(domain.MaxTags, src.Tags),
	}}, nil
}
