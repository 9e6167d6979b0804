package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/metadata"
)

const substackArticleLimit = 5

// Substack extracts recent posts from a Substack publication's archive page.
type Substack struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

// NewSubstack wires the shared fetch client.
func NewSubstack(fetcher *fetch.Client, logger *slog.Logger) *Substack {
	return &Substack{fetcher: fetcher, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (s *Substack) Kind() domain.SourceKind { return domain.KindSubstack }

// Extract collects /p/ post links from the archive and scrapes each post.
// A post that fails to fetch is skipped, not fatal.
func (s *Substack) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	doc, err := s.fetcher.Document(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch archive: %w", err)
	}

	var links []string
	seen := map[string]bool{}
	doc.Find(`a[href*="/p/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		absolute := resolveURL(src.URL, href)
		if seen[absolute] {
			return true
		}
		seen[absolute] = true
		links = append(links, absolute)
		return len(links) < substackArticleLimit
	})

	articles := make([]domain.Article, 0, len(links))
	for _, link := range links {
		article, err := s.scrapePost(ctx, link, src)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("substack post skipped", "url", link, "error", err)
			}
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (s *Substack) scrapePost(ctx context.Context, postURL string, src domain.Source) (domain.Article, error) {
	doc, err := s.fetcher.Document(ctx, postURL)
	if err != nil {
		return domain.Article{}, err
	}

	title := normalizeSpace(doc.Find("h1.post-title").First().Text())
	if title == "" {
		title = normalizeSpace(doc.Find("h1").First().Text())
	}

	content := normalizeSpace(doc.Find("div.available-content").First().Text())
	if content == "" {
		content = normalizeSpace(doc.Find("div.body").First().Text())
	}

	publishedAt := time.Now().UTC()
	if datetime, ok := doc.Find("time").First().Attr("datetime"); ok {
		publishedAt = metadata.ParseDate(datetime)
	} else if stamp := normalizeSpace(doc.Find("span.pencraft").First().Text()); stamp != "" {
		publishedAt = metadata.ParseDate(stamp)
	}

	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	description = strings.TrimSpace(description)
	if description == "" {
		description = truncate(content, previewLimit)
	}

	language := src.Language
	if language == "" {
		language = metadata.DetectLanguage(title + " " + content)
	}
	category := src.Category
	if category == "" {
		category = "newsletter"
	}

	return domain.Article{
		Source:      src.Name,
		SourceURL:   postURL,
		Title:       title,
		Description: description,
		Content:     content,
		PublishedAt: publishedAt,
		Language:    language,
		Category:    category,
		Tags:        capTags(domain.MaxTags, src.Tags),
	}, nil
}
