package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/metadata"
)

const (
	mailchimpArticleLimit = 10
	// Campaign archives expose an equivalent RSS feed keyed by the same
	// u/id pair as the archive page.
	mailchimpFeedTemplate = "https://us20.campaign-archive.com/feed?u=%s&id=%s"
)

// mailchimpContentSelectors locate the body inside Mailchimp's table layouts.
var mailchimpContentSelectors = []string{
	"#templateBody",
	".mcnTextContent",
	".bodyContent",
	"#bodyTable",
	"td.mcnTextContent",
	`[role="article"]`,
}

var campaignLinkExpr = regexp.MustCompile(`u=.+&(amp;)?id=.+`)

// Mailchimp extracts campaigns from a Mailchimp campaign archive, via the
// archive's RSS feed when the URL carries the u/id parameters, or by walking
// the archive page's campaign links otherwise.
type Mailchimp struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

// NewMailchimp wires the shared fetch client.
func NewMailchimp(fetcher *fetch.Client, logger *slog.Logger) *Mailchimp {
	return &Mailchimp{fetcher: fetcher, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (m *Mailchimp) Kind() domain.SourceKind { return domain.KindMailchimp }

// Extract dispatches between the feed and archive-page strategies.
func (m *Mailchimp) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	parsed, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parse archive url: %w", err)
	}

	params := parsed.Query()
	if params.Get("u") != "" && params.Get("id") != "" {
		return m.extractFromFeed(ctx, src, params.Get("u"), params.Get("id"))
	}
	return m.extractFromArchivePage(ctx, src)
}

// FeedURL builds the RSS feed equivalent of a campaign archive.
func FeedURL(userID, listID string) string {
	return fmt.Sprintf(mailchimpFeedTemplate, userID, listID)
}

func (m *Mailchimp) extractFromFeed(ctx context.Context, src domain.Source, userID, listID string) ([]domain.Article, error) {
	feedURL := FeedURL(userID, listID)

	body, err := m.fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch campaign feed: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse campaign feed: %w", err)
	}

	sourceName := src.Name
	if sourceName == "" {
		sourceName = feed.Title
	}
	if sourceName == "" {
		sourceName = "Mailchimp Newsletter"
	}

	var articles []domain.Article
	for _, item := range feed.Items {
		if len(articles) == mailchimpArticleLimit {
			break
		}
		if item.Link == "" {
			continue
		}

		summary := plainText(item.Description)
		article := domain.Article{
			Source:      sourceName,
			SourceURL:   item.Link,
			Title:       item.Title,
			Description: truncate(summary, descriptionLimit),
			Content:     summary,
			PublishedAt: metadata.ParseDate(item.Published),
			Language:    defaultString(src.Language, "en"),
			Category:    defaultString(src.Category, "newsletter"),
			Tags:        capTags(domain.MaxTags, src.Tags),
		}

		// The feed summary is usually a teaser; prefer the campaign body.
		if content := m.fetchCampaignContent(ctx, item.Link); content != "" {
			article.Content = content
			article.Description = truncate(content, descriptionLimit)
		}

		articles = append(articles, article)
	}

	return articles, nil
}

func (m *Mailchimp) extractFromArchivePage(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	doc, err := m.fetcher.Document(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch archive page: %w", err)
	}

	var links []string
	seen := map[string]bool{}
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !campaignLinkExpr.MatchString(href) {
			return true
		}
		absolute := resolveURL(src.URL, href)
		if seen[absolute] {
			return true
		}
		seen[absolute] = true
		links = append(links, absolute)
		return len(links) < mailchimpArticleLimit
	})

	articles := make([]domain.Article, 0, len(links))
	for _, link := range links {
		article, err := m.scrapeCampaign(ctx, link, src)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("campaign page skipped", "url", link, "error", err)
			}
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (m *Mailchimp) scrapeCampaign(ctx context.Context, campaignURL string, src domain.Source) (domain.Article, error) {
	doc, err := m.fetcher.Document(ctx, campaignURL)
	if err != nil {
		return domain.Article{}, err
	}

	title := normalizeSpace(doc.Find("title").First().Text())
	if title == "" {
		title = normalizeSpace(doc.Find("h1").First().Text())
	}

	content := campaignContent(doc)

	publishedAt := time.Now().UTC()
	if stamp, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		publishedAt = metadata.ParseDate(stamp)
	}

	return domain.Article{
		Source:      defaultString(src.Name, "Mailchimp Newsletter"),
		SourceURL:   campaignURL,
		Title:       title,
		Description: truncate(content, descriptionLimit),
		Content:     content,
		PublishedAt: publishedAt,
		Language:    defaultString(src.Language, "en"),
		Category:    defaultString(src.Category, "newsletter"),
		Tags:        capTags(domain.MaxTags, src.Tags),
	}, nil
}

func (m *Mailchimp) fetchCampaignContent(ctx context.Context, campaignURL string) string {
	doc, err := m.fetcher.Document(ctx, campaignURL)
	if err != nil {
		if m.logger != nil {
			m.logger.Debug("campaign content fetch failed", "url", campaignURL, "error", err)
		}
		return ""
	}
	return campaignContent(doc)
}

func campaignContent(doc *goquery.Document) string {
	for _, selector := range mailchimpContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		sel.Find("style, script").Remove()
		if content := normalizeSpace(sel.Text()); content != "" {
			return content
		}
	}
	return ""
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
