package scrape

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const (
	descriptionLimit = 500
	previewLimit     = 300
)

var stripPolicy = bluemonday.StrictPolicy()

// plainText strips any markup from a string that may carry HTML, such as a
// feed summary, and collapses whitespace.
func plainText(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return normalizeSpace(s)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts text at limit runes, appending an ellipsis when it had to cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// clip is truncate without the ellipsis, for content caps.
func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// resolveURL makes href absolute against the page it was found on.
func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	hrefURL, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(hrefURL).String()
}

// firstMatchText walks selectors in order and returns the text of the first
// one that selects anything.
func firstMatchText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := normalizeSpace(sel.Text()); text != "" {
			return text
		}
	}
	return ""
}

// capTags merges tag lists in order, dropping duplicates, up to limit.
func capTags(limit int, lists ...[]string) []string {
	var tags []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
			if len(tags) == limit {
				return tags
			}
		}
	}
	return tags
}
