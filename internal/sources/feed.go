package sources

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/logger"
)

const (
	httpPrefix = "http"

	feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"
)

// FeedSource pulls an RSS or Atom feed and maps its entries into the common
// item shape.
type FeedSource struct {
	name    string
	feedURL string
	client  HTTPDoer
	parser  *gofeed.Parser
	logger  logger.Logger
}

// NewFeedSource creates a feed adapter named name reading from feedURL.
func NewFeedSource(name, feedURL string, client HTTPDoer, log logger.Logger) *FeedSource {
	return &FeedSource{
		name:    name,
		feedURL: feedURL,
		client:  client,
		parser:  gofeed.NewParser(),
		logger:  log,
	}
}

// Name returns the adapter name.
func (s *FeedSource) Name() string { return s.name }

// Kind returns KindFeed.
func (s *FeedSource) Kind() Kind { return KindFeed }

// Fetch downloads and parses the feed. Entries without a usable title or
// link are skipped, duplicate links keep their first occurrence, and any
// failure yields an empty result.
func (s *FeedSource) Fetch(ctx context.Context, category content.Category, limit int) []content.Item {
	body, err := fetchBody(ctx, s.client, s.feedURL, feedAccept)
	if err != nil {
		s.logger.Warn("feed fetch failed",
			logger.String("source", s.name),
			logger.String("url", s.feedURL),
			logger.Error(err))
		return nil
	}

	parsed, err := s.parser.ParseString(body)
	if err != nil {
		s.logger.Warn("feed parse failed",
			logger.String("source", s.name),
			logger.String("url", s.feedURL),
			logger.Error(err))
		return nil
	}

	items := make([]content.Item, 0, len(parsed.Items))
	seen := make(map[string]struct{}, len(parsed.Items))
	for _, entry := range parsed.Items {
		link := extractLink(entry)
		if entry.Title == "" || link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		items = append(items, content.Item{
			Title:       entry.Title,
			URL:         link,
			Description: entry.Description,
			PublishedAt: formatPublishedAt(entry.PublishedParsed),
			Source:      s.name,
			Tags:        entry.Categories,
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}

	s.logger.Debug("feed fetched",
		logger.String("source", s.name),
		logger.String("category", category.String()),
		logger.Int("items", len(items)))
	return items
}

// extractLink prefers the entry link, falling back to the GUID when it looks
// like a URL.
func extractLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if strings.HasPrefix(entry.GUID, httpPrefix) {
		return entry.GUID
	}
	return ""
}

// formatPublishedAt renders the entry timestamp as RFC3339, or empty when
// the feed did not provide one.
func formatPublishedAt(published *time.Time) string {
	if published == nil {
		return ""
	}
	return published.Format(time.RFC3339)
}
