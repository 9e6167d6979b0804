package metadata

import (
	"net/mail"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// timeNow is swapped in tests to pin the fallback instant.
var timeNow = func() time.Time { return time.Now().UTC() }

// ParseDate turns a date string from a feed, page, or mail header into a
// timestamp. ISO-8601 is tried first (detected by the T separator), then the
// RFC-2822 mail format, then a lenient last-chance parse. Anything
// unparseable falls back to the current time; it never fails.
func ParseDate(value string) time.Time {
	t, ok := TryParseDate(value)
	if !ok {
		return timeNow()
	}
	return t
}

// TryParseDate is ParseDate without the now-fallback.
func TryParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if strings.Contains(value, "T") {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
		}
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}

	if t, err := dateparse.ParseAny(value); err == nil {
		return t, true
	}

	return time.Time{}, false
}

// dateProbes are checked in order on pages that carry no feed metadata.
var dateProbes = []string{
	"time[datetime]",
	".published-date",
	".post-date",
	".date",
	`meta[property="article:published_time"]`,
}

// DateFromDocument probes common publish-date markers in an HTML document.
// The second return value is false when no marker is present; the caller
// substitutes the current time.
func DateFromDocument(doc *goquery.Document) (time.Time, bool) {
	for _, selector := range dateProbes {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		value, ok := sel.Attr("datetime")
		if !ok {
			value, ok = sel.Attr("content")
		}
		if !ok {
			value = strings.TrimSpace(sel.Text())
		}
		if value == "" {
			continue
		}

		if t, parsed := TryParseDate(value); parsed {
			return t, true
		}
	}

	return time.Time{}, false
}
