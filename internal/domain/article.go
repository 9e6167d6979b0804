package domain

import (
	"strings"
	"time"
)

// MaxTags caps how many tags any component may attach to an article.
const MaxTags = 10

// SourceKind selects the extraction strategy for a source.
type SourceKind string

const (
	KindRSS        SourceKind = "rss"
	KindGeneric    SourceKind = "generic"
	KindSubstack   SourceKind = "substack"
	KindNewsletter SourceKind = "newsletter"
	KindMailchimp  SourceKind = "mailchimp"
	KindBlog       SourceKind = "blog"
	KindGmail      SourceKind = "gmail"
)

// GmailFilter narrows a mail search to one newsletter.
type GmailFilter struct {
	From            string
	SubjectKeywords []string
	ExcludeKeywords []string
	DaysBack        int
}

// Query assembles the provider search expression: a from: clause, one
// subject: clause per keyword, and a negation per exclusion.
func (f GmailFilter) Query() string {
	var parts []string
	if f.From != "" {
		parts = append(parts, "from:"+f.From)
	}
	for _, kw := range f.SubjectKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			parts = append(parts, "subject:"+kw)
		}
	}
	for _, kw := range f.ExcludeKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			parts = append(parts, "-"+kw)
		}
	}
	return strings.Join(parts, " ")
}

// Source describes one configured acquisition target.
type Source struct {
	Name               string
	URL                string
	Kind               SourceKind
	Language           string
	Category           string
	Tags               []string
	FetchIntervalHours int
	LastFetchedAt      *time.Time
	Enabled            bool
	MaxItems           int
	Gmail              *GmailFilter
}

// Due reports whether the source should be fetched at the given instant.
// Sources that have never been fetched are always due.
func (s Source) Due(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.LastFetchedAt == nil {
		return true
	}
	interval := time.Duration(s.FetchIntervalHours) * time.Hour
	return now.Sub(*s.LastFetchedAt) >= interval
}

// Article is the normalized record every extractor emits. SourceURL is the
// global dedup key and must be non-empty; extractors synthesize a stable
// pseudo-URL (gmail://message/<id>) when an item has no natural URL.
type Article struct {
	Source      string
	SourceURL   string
	Title       string
	Description string
	Content     string
	Author      string
	PublishedAt time.Time
	Language    string
	Category    string
	Tags        []string
	ImageURL    string
}

// RunStatus enumerates fetch-run outcomes.
type RunStatus string

const (
	RunStarted RunStatus = "started"
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// FetchRun is the audit record for one acquisition attempt against one source.
// It is opened with RunStarted and finalized exactly once.
type FetchRun struct {
	ID              string
	Source          string
	StartedAt       time.Time
	ItemsFound      int
	ItemsProcessed  int
	ItemsSaved      int
	Status          RunStatus
	ErrorMessage    string
	DurationSeconds float64
	Query           string
}

// SiteInfo is the classifier's verdict about a URL.
type SiteInfo struct {
	Name        string
	SiteType    string
	Language    string
	Category    string
	Tags        []string
	Description string
}

// MailMessage is a raw message returned by the mail collaborator.
type MailMessage struct {
	ID       string
	Subject  string
	Sender   string
	Date     string
	TextBody string
	HTMLBody string
}
