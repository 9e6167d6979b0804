package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/metadata"
)

// Pages whose structural chain yields less text than this get a readability
// pass, which handles javascript-era markup the selector chain cannot.
const thinContentFloor = 200

// Generic extracts a single article from an arbitrary web page.
type Generic struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

// NewGeneric wires the shared fetch client.
func NewGeneric(fetcher *fetch.Client, logger *slog.Logger) *Generic {
	return &Generic{fetcher: fetcher, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (g *Generic) Kind() domain.SourceKind { return domain.KindGeneric }

// Extract fetches the page and emits one article from its main content.
func (g *Generic) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	body, err := g.fetcher.Get(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	title := normalizeSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = normalizeSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = "Web Content"
	}

	content := firstMatchText(doc, []string{"main", "article", "body"})

	if len(content) < thinContentFloor {
		if extracted := g.readabilityPass(body, src.URL); len(extracted) > len(content) {
			content = extracted
		}
	}

	language := src.Language
	if language == "" {
		language = metadata.DetectLanguage(title + " " + content)
	}
	category := src.Category
	if category == "" {
		category = "web"
	}

	return []domain.Article{{
		Source:      src.Name,
		SourceURL:   src.URL,
		Title:       title,
		Description: truncate(content, previewLimit),
		Content:     content,
		PublishedAt: time.Now().UTC(),
		Language:    language,
		Category:    category,
		Tags:        capTags(domain.MaxTags, src.Tags),
	}}, nil
}

func (g *Generic) readabilityPass(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		if g.logger != nil {
			g.logger.Debug("readability pass failed", "url", pageURL, "error", err)
		}
		return ""
	}

	return normalizeSpace(article.TextContent)
}
