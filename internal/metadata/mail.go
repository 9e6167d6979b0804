package metadata

import (
	"regexp"
	"strings"

	"NewsCollector/internal/domain"
)

// mailCategories are checked in declared order; the first category with any
// matching keyword wins. This is deliberately not the score-based policy the
// site classifier uses for general web content.
var mailCategories = []struct {
	name     string
	keywords []string
}{
	{"ai", []string{"artificial intelligence", "machine learning", "deep learning", "ai", "ml", "gpt", "llm"}},
	{"tech", []string{"technology", "startup", "programming", "software", "developer"}},
	{"data", []string{"data science", "analytics", "big data", "kaggle"}},
	{"business", []string{"business", "finance", "market", "economy", "investment"}},
	{"science", []string{"science", "research", "study", "discovery"}},
}

// CategoryForMail infers a category from a mail subject and body.
func CategoryForMail(subject, body string) string {
	text := strings.ToLower(subject + " " + body)
	for _, cat := range mailCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(text, kw) {
				return cat.name
			}
		}
	}
	return "newsletter"
}

var mailTagKeywords = []string{
	"ai", "machine learning", "deep learning", "data science",
	"programming", "software", "startup", "innovation",
	"blockchain", "cloud", "security", "api",
}

// TagsForMail scans subject and body for technical keywords, hyphenating
// multi-word matches, and always includes the newsletter and email tags.
// The result is capped at MaxTags entries.
func TagsForMail(subject, body string) []string {
	text := strings.ToLower(subject + " " + body)

	tags := []string{"newsletter", "email"}
	seen := map[string]bool{"newsletter": true, "email": true}

	for _, kw := range mailTagKeywords {
		if !strings.Contains(text, kw) {
			continue
		}
		tag := strings.ReplaceAll(kw, " ", "-")
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	return CapTags(tags)
}

// CapTags truncates a tag list to the domain-wide maximum.
func CapTags(tags []string) []string {
	if len(tags) > domain.MaxTags {
		return tags[:domain.MaxTags]
	}
	return tags
}

var senderExpr = regexp.MustCompile(`^(.+?)\s*<(.+?)>$`)

// ParseSender splits a raw From header into a display name and address.
// It handles the quoted "Name" <email> form, bare addresses, and garbage.
func ParseSender(raw string) (name, email string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Unknown", "unknown@unknown.com"
	}

	if m := senderExpr.FindStringSubmatch(raw); m != nil {
		name = strings.Trim(m[1], ` "`)
		return name, strings.TrimSpace(m[2])
	}

	if strings.Contains(raw, "@") {
		return strings.SplitN(raw, "@", 2)[0], raw
	}

	return raw, "unknown@unknown.com"
}
