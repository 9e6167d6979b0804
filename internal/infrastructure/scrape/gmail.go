package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/metadata"
	"NewsCollector/internal/ports"
)

const (
	gmailContentLimit = 5000
	gmailSearchLimit  = 20
	gmailDefaultDays  = 7

	// Stable pseudo-URL scheme for messages, which have no natural URL.
	gmailURLScheme = "gmail://message/"
)

// Gmail converts newsletter mail matched by a configured filter into
// articles. It talks to the mail provider through the MailSearcher
// collaborator; credentials live entirely on that side.
type Gmail struct {
	searcher ports.MailSearcher
	logger   *slog.Logger
}

// NewGmail wires the mail collaborator.
func NewGmail(searcher ports.MailSearcher, logger *slog.Logger) *Gmail {
	return &Gmail{searcher: searcher, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (g *Gmail) Kind() domain.SourceKind { return domain.KindGmail }

// Extract searches for matching messages and converts each into one article.
// A message that fails to load or has no body is skipped; a search failure
// (including missing credentials) fails the whole source.
func (g *Gmail) Extract(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	if src.Gmail == nil {
		return nil, fmt.Errorf("gmail source %s has no filter configured", src.Name)
	}
	if g.searcher == nil {
		return nil, ports.ErrNoCredentials
	}

	query := src.Gmail.Query()
	if query == "" {
		return nil, fmt.Errorf("gmail source %s produces an empty query", src.Name)
	}

	daysBack := src.Gmail.DaysBack
	if daysBack <= 0 {
		daysBack = gmailDefaultDays
	}

	ids, err := g.searcher.Search(ctx, query, gmailSearchLimit, daysBack)
	if err != nil {
		return nil, fmt.Errorf("search mail: %w", err)
	}

	articles := make([]domain.Article, 0, len(ids))
	for _, id := range ids {
		msg, err := g.searcher.FetchDetails(ctx, id)
		if err != nil {
			if g.logger != nil {
				g.logger.Warn("message skipped", "id", id, "error", err)
			}
			continue
		}

		article, ok := g.messageToArticle(src, msg)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (g *Gmail) messageToArticle(src domain.Source, msg domain.MailMessage) (domain.Article, bool) {
	text := msg.TextBody
	if msg.HTMLBody != "" {
		if stripped := htmlBodyText(msg.HTMLBody); stripped != "" {
			text = stripped
		}
	}
	if strings.TrimSpace(text) == "" {
		if g.logger != nil {
			g.logger.Warn("message without content skipped", "id", msg.ID)
		}
		return domain.Article{}, false
	}

	subject := msg.Subject
	if subject == "" {
		subject = "No Subject"
	}

	senderName, _ := metadata.ParseSender(msg.Sender)

	language := src.Language
	if language == "" {
		language = metadata.DetectLanguage(text)
	}
	category := src.Category
	if category == "" {
		category = metadata.CategoryForMail(subject, text)
	}

	return domain.Article{
		Source:      defaultString(src.Name, senderName),
		SourceURL:   gmailURLScheme + msg.ID,
		Title:       subject,
		Description: truncate(text, descriptionLimit),
		Content:     clip(text, gmailContentLimit),
		Author:      senderName,
		PublishedAt: metadata.ParseDate(msg.Date),
		Language:    language,
		Category:    category,
		Tags:        capTags(domain.MaxTags, metadata.TagsForMail(subject, text), src.Tags),
	}, true
}

// htmlBodyText strips markup and boilerplate tags from a mail HTML body.
func htmlBodyText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, meta, link").Remove()
	return normalizeSpace(doc.Text())
}
