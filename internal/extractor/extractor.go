package extractor

import (
	"context"
	"fmt"
	"strings"

	"NewsCollector/internal/domain"
)

// Extractor captures a single acquisition strategy (rss, substack, gmail, ...).
// Extract returns the articles it managed to gather; item-level problems are
// absorbed internally and only a whole-source failure surfaces as an error.
type Extractor interface {
	Kind() domain.SourceKind
	Extract(ctx context.Context, src domain.Source) ([]domain.Article, error)
}

// Registry keeps a mapping from source kinds to their strategies.
type Registry struct {
	extractors map[domain.SourceKind]Extractor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: map[domain.SourceKind]Extractor{}}
}

// Register adds or replaces a strategy.
func (r *Registry) Register(e Extractor) {
	if r.extractors == nil {
		r.extractors = map[domain.SourceKind]Extractor{}
	}
	r.extractors[e.Kind()] = e
}

// Resolve returns the strategy for a source. Mailchimp campaign-archive URLs
// take the mailchimp strategy regardless of the declared kind, mirroring how
// those archives are detected in the wild.
func (r *Registry) Resolve(src domain.Source) (Extractor, error) {
	kind := src.Kind

	lower := strings.ToLower(src.URL)
	if strings.Contains(lower, "campaign-archive.com") || strings.Contains(lower, "list-manage.com") {
		kind = domain.KindMailchimp
	}
	if kind == "" {
		kind = domain.KindGeneric
	}

	if e, ok := r.extractors[kind]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("no extractor registered for kind %q", kind)
}

// KindForSiteType maps a classifier verdict onto an extraction strategy.
func KindForSiteType(siteType string) domain.SourceKind {
	switch siteType {
	case "substack":
		return domain.KindSubstack
	case "newsletter":
		return domain.KindNewsletter
	case "blog":
		return domain.KindBlog
	default:
		return domain.KindGeneric
	}
}
