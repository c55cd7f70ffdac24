// Package sources provides the content source adapters and the per-category
// registry the aggregator consults.
//
// Adapters are deliberately quiet: a source that is down, slow, or serving
// garbage reports an empty result instead of an error, so one bad source can
// never take down a whole aggregation pass.
package sources

import (
	"context"
	"fmt"
	"net/http"

	"github.com/techpath/content-pipeline/internal/content"
)

// Kind tags the two adapter families. Listing adapters sit ahead of feed
// adapters in merge priority.
type Kind string

const (
	KindListing Kind = "listing"
	KindFeed    Kind = "feed"
)

// ParseKind validates raw against the known adapter kinds.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindListing, KindFeed:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("unknown source kind %q", raw)
}

// ContentSource normalizes one external content source into the common item
// shape. Fetch never returns an error and never panics: adapters swallow
// their own failures and report an empty result instead.
type ContentSource interface {
	Name() string
	Kind() Kind
	Fetch(ctx context.Context, category content.Category, limit int) []content.Item
}

// HTTPDoer is the minimal HTTP client surface the adapters need.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registry holds the adapters registered per category.
type Registry struct {
	byCategory map[content.Category][]ContentSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byCategory: make(map[content.Category][]ContentSource),
	}
}

// Register adds src to the category's adapter list. One adapter may serve
// several categories.
func (r *Registry) Register(category content.Category, src ContentSource) {
	r.byCategory[category] = append(r.byCategory[category], src)
}

// SourcesFor returns the category's adapters in merge-priority order:
// listing adapters first, then feed adapters, preserving registration order
// within each kind.
func (r *Registry) SourcesFor(category content.Category) []ContentSource {
	registered := r.byCategory[category]
	if len(registered) == 0 {
		return nil
	}

	ordered := make([]ContentSource, 0, len(registered))
	for _, src := range registered {
		if src.Kind() == KindListing {
			ordered = append(ordered, src)
		}
	}
	for _, src := range registered {
		if src.Kind() != KindListing {
			ordered = append(ordered, src)
		}
	}
	return ordered
}
