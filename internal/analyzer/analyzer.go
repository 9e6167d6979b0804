package analyzer

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
	"NewsCollector/internal/metadata"
	"NewsCollector/internal/ports"
)

var titleSeparators = []string{" - ", " | ", " – ", " — "}

var newsletterKeywords = []string{"newsletter", "subscribe", "unsubscribe", "email", "weekly", "monthly"}

var mailchimpMarkers = []string{"campaign-archive.com", "list-manage.com", "mailchi.mp"}

// categoryKeywords score general web content. Order matters: ties resolve to
// the earliest declared category.
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"ai", []string{"artificial intelligence", "machine learning", "deep learning", "neural network",
		"ai", "ml", "chatgpt", "gpt", "llm", "人工知能", "機械学習", "深層学習"}},
	{"data-science", []string{"data science", "kaggle", "data analysis", "statistics", "analytics",
		"データサイエンス", "データ分析", "統計"}},
	{"technology", []string{"technology", "tech", "software", "hardware", "computer", "programming",
		"テクノロジー", "技術", "ソフトウェア", "プログラミング"}},
	{"startup", []string{"startup", "entrepreneur", "venture", "funding", "investment",
		"スタートアップ", "起業", "ベンチャー"}},
	{"business", []string{"business", "management", "marketing", "finance", "economy",
		"ビジネス", "経営", "マーケティング", "経済"}},
	{"science", []string{"science", "research", "study", "discovery", "experiment",
		"科学", "研究", "実験", "発見"}},
	{"creative-ai", []string{"creative", "art", "design", "music", "generative",
		"クリエイティブ", "アート", "デザイン", "音楽", "生成"}},
}

var tagKeywords = []string{
	"ai", "machine learning", "deep learning", "data science",
	"programming", "software", "technology", "startup", "innovation",
	"api", "cloud", "security", "blockchain", "iot", "robotics",
}

// Analyzer infers acquisition metadata for sites whose configuration leaves
// the type, language, or category blank.
type Analyzer struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

var _ ports.SiteClassifier = (*Analyzer)(nil)

// New wires the shared fetch client.
func New(fetcher *fetch.Client, logger *slog.Logger) *Analyzer {
	if fetcher == nil {
		fetcher = fetch.NewClient(nil)
	}
	return &Analyzer{fetcher: fetcher, logger: logger}
}

// Analyze fetches the URL and classifies it. It never fails: when the page
// cannot be fetched the verdict is derived from the domain name alone.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string) domain.SiteInfo {
	doc, err := a.fetcher.Document(ctx, pageURL)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("site analysis fell back to defaults", "url", pageURL, "error", err)
		}
		return DefaultInfo(pageURL)
	}
	return Classify(pageURL, doc)
}

// Classify derives site metadata from a fetched document. It is a pure
// function of its inputs, so repeated calls agree.
func Classify(pageURL string, doc *goquery.Document) domain.SiteInfo {
	text := doc.Text()
	siteType := detectSiteType(pageURL, doc, text)

	info := domain.SiteInfo{
		Name:        extractSiteName(doc, pageURL),
		SiteType:    siteType,
		Language:    detectLanguage(doc),
		Category:    detectCategory(doc, text),
		Tags:        extractTags(doc, text, siteType),
		Description: extractDescription(doc),
	}

	if isMailchimpURL(pageURL) {
		info.SiteType = "newsletter"
		if info.Category == "" {
			info.Category = "newsletter"
		}
	}

	return info
}

// DefaultInfo builds the verdict used when the page is unreachable.
func DefaultInfo(pageURL string) domain.SiteInfo {
	name := "Unknown Site"
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Hostname() != "" {
		name = titleCase(strings.SplitN(parsed.Hostname(), ".", 2)[0])
	}
	return domain.SiteInfo{
		Name:     name,
		SiteType: "generic",
		Language: "en",
		Category: "technology",
	}
}

func isMailchimpURL(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	for _, marker := range mailchimpMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func detectSiteType(pageURL string, doc *goquery.Document, text string) string {
	lower := strings.ToLower(pageURL)

	switch {
	case strings.Contains(lower, "substack.com"):
		return "substack"
	case isMailchimpURL(lower):
		return "newsletter"
	case strings.Contains(lower, "medium.com") || strings.Contains(lower, "blog"):
		return "blog"
	}

	content := strings.ToLower(text)
	matched := 0
	for _, kw := range newsletterKeywords {
		if strings.Contains(content, kw) {
			matched++
		}
	}
	if matched >= 3 {
		return "newsletter"
	}

	if doc.Find("article").Length() > 0 ||
		doc.Find(`[class*="post"], [class*="article"], [class*="entry"]`).Length() > 0 {
		return "blog"
	}
	if doc.Find(`link[type="application/rss+xml"]`).Length() > 0 {
		return "blog"
	}

	return "generic"
}

func extractSiteName(doc *goquery.Document, pageURL string) string {
	if name, ok := doc.Find(`meta[property="og:site_name"]`).First().Attr("content"); ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		for _, sep := range titleSeparators {
			if strings.Contains(title, sep) {
				parts := strings.Split(title, sep)
				// The trailing segment is usually the site name.
				return strings.TrimSpace(parts[len(parts)-1])
			}
		}
		if len([]rune(title)) <= 50 {
			return title
		}
	}

	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" && len([]rune(h1)) <= 50 {
		return h1
	}

	if parsed, err := url.Parse(pageURL); err == nil && parsed.Hostname() != "" {
		parts := strings.Split(parsed.Hostname(), ".")
		main := parts[0]
		if len(parts) > 1 {
			main = parts[len(parts)-2]
		}
		main = strings.NewReplacer("-", " ", "_", " ").Replace(main)
		return titleCase(main)
	}

	return "Unknown Site"
}

func detectLanguage(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		if code := normalizeLang(lang); code != "" {
			return code
		}
	}

	if lang, ok := doc.Find(`meta[http-equiv="content-language"]`).First().Attr("content"); ok {
		if code := normalizeLang(lang); code != "" {
			return code
		}
	}

	sample := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
		sample += " " + strings.TrimSpace(p.Text())
		return i < 4
	})
	if len([]rune(sample)) > 50 {
		if code, ok := metadata.DetectStatistical(sample); ok {
			return code
		}
		return "en"
	}

	return "en"
}

func normalizeLang(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if len(value) < 2 {
		return ""
	}
	switch value[:2] {
	case "en", "ja", "zh":
		return value[:2]
	}
	return ""
}

func detectCategory(doc *goquery.Document, text string) string {
	content := strings.ToLower(text)

	best, bestScore := "", 0
	for _, cat := range categoryKeywords {
		score := 0
		for _, kw := range cat.keywords {
			if strings.Contains(content, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = cat.name, score
		}
	}
	if best != "" {
		return best
	}

	if meta, ok := doc.Find(`meta[name="category"]`).First().Attr("content"); ok {
		if meta = strings.ToLower(strings.TrimSpace(meta)); meta != "" {
			return meta
		}
	}

	return "technology"
}

func extractTags(doc *goquery.Document, text, siteType string) []string {
	var tags []string
	seen := map[string]bool{}
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	if keywords, ok := doc.Find(`meta[name="keywords"]`).First().Attr("content"); ok {
		for i, kw := range strings.Split(keywords, ",") {
			if i >= 10 {
				break
			}
			add(kw)
		}
	}

	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if tag, ok := sel.Attr("content"); ok {
			add(tag)
		}
	})

	add(siteType)

	content := strings.ToLower(text)
	for _, kw := range tagKeywords {
		if strings.Contains(content, kw) {
			add(strings.ReplaceAll(kw, " ", "-"))
		}
	}

	return metadata.CapTags(tags)
}

func extractDescription(doc *goquery.Document) string {
	if desc, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return desc
		}
	}

	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return desc
		}
	}

	if p := strings.TrimSpace(doc.Find("p").First().Text()); len(p) > 50 && len(p) < 500 {
		return p
	}

	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		if len(runes) > 0 && runes[0] >= 'a' && runes[0] <= 'z' {
			runes[0] -= 'a' - 'A'
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
