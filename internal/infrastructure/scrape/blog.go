package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/metadata"
)

const blogArticleLimit = 5

// blogLinkSelectors are tried in order; the first selector with any matches
// wins outright, with no union across selectors.
var blogLinkSelectors = []string{
	"article a",
	".post a",
	".entry a",
	"h2 a",
	"h3 a",
}

var blogContentSelectors = []string{
	"article",
	".post-content",
	".entry-content",
	".content",
	"main",
}

// Blog extracts recent posts from a blog index page.
type Blog struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

// NewBlog wires the shared fetch client.
func NewBlog(fetcher *fetch.Client, logger *slog.Logger) *Blog {
	return &Blog{fetcher: fetcher, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (b *Blog) Kind() domain.SourceKind { return domain.KindBlog }

// Extract finds post links on the index and scrapes each post page.
func (b *Blog) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	doc, err := b.fetcher.Document(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}

	links := indexLinks(doc, src.URL)

	articles := make([]domain.Article, 0, len(links))
	for _, link := range links {
		article, err := b.scrapePost(ctx, link, src)
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("blog post skipped", "url", link, "error", err)
			}
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func indexLinks(doc *goquery.Document, baseURL string) []string {
	for _, selector := range blogLinkSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}

		var links []string
		seen := map[string]bool{}
		sel.EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return true
			}
			absolute := resolveURL(baseURL, href)
			if seen[absolute] {
				return true
			}
			seen[absolute] = true
			links = append(links, absolute)
			return len(links) < blogArticleLimit
		})
		return links
	}
	return nil
}

func (b *Blog) scrapePost(ctx context.Context, postURL string, src domain.Source) (domain.Article, error) {
	doc, err := b.fetcher.Document(ctx, postURL)
	if err != nil {
		return domain.Article{}, err
	}

	title := normalizeSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = normalizeSpace(doc.Find("title").First().Text())
	}

	content := firstMatchText(doc, blogContentSelectors)

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
		category = "blog"
	}

	return domain.Article{
		Source:      src.Name,
		SourceURL:   postURL,
		Title:       title,
		Description: truncate(content, previewLimit),
		Content:     content,
		PublishedAt: publishedAt,
		Language:    language,
		Category:    category,
		Tags:        capTags(domain.MaxTags, src.Tags),
	}, nil
}
