package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/logger"
)

const listingAccept = "application/json"

// ListingSource pulls a JSON REST endpoint that returns an array of records
// (job boards, article listings) and maps each record into the common item
// shape.
type ListingSource struct {
	name     string
	endpoint string
	client   HTTPDoer
	logger   logger.Logger
}

// NewListingSource creates a listing adapter named name reading from
// endpoint.
func NewListingSource(name, endpoint string, client HTTPDoer, log logger.Logger) *ListingSource {
	return &ListingSource{
		name:     name,
		endpoint: endpoint,
		client:   client,
		logger:   log,
	}
}

// Name returns the adapter name.
func (s *ListingSource) Name() string { return s.name }

// Kind returns KindListing.
func (s *ListingSource) Kind() Kind { return KindListing }

// listingRecord covers the union of fields the known listing endpoints
// return. Job boards use position/company/tags, article APIs use
// title/url/tag_list.
type listingRecord struct {
	Title       string   `json:"title"`
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	URL         string   `json:"url"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	PublishedAt string   `json:"published_at"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	TagList     []string `json:"tag_list"`
}

func (rec *listingRecord) title() string {
	if rec.Title != "" {
		return rec.Title
	}
	if rec.Position == "" {
		return ""
	}
	if rec.Company != "" {
		return fmt.Sprintf("%s at %s", rec.Position, rec.Company)
	}
	return rec.Position
}

func (rec *listingRecord) url() string {
	if rec.URL != "" {
		return rec.URL
	}
	return rec.Link
}

func (rec *listingRecord) tags() []string {
	if len(rec.Tags) > 0 {
		return rec.Tags
	}
	return rec.TagList
}

// publishedAt keeps the record timestamp only when it is already RFC3339;
// listing endpoints that use other formats just lose the field.
func (rec *listingRecord) publishedAt() string {
	for _, raw := range []string{rec.PublishedAt, rec.Date} {
		if raw == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, raw); err == nil {
			return raw
		}
	}
	return ""
}

// Fetch downloads and decodes the listing. Records that fail to decode or
// lack a usable title or URL are skipped, duplicate URLs keep their first
// occurrence, and any failure yields an empty result.
func (s *ListingSource) Fetch(ctx context.Context, category content.Category, limit int) []content.Item {
	body, err := fetchBody(ctx, s.client, s.endpoint, listingAccept)
	if err != nil {
		s.logger.Warn("listing fetch failed",
			logger.String("source", s.name),
			logger.String("url", s.endpoint),
			logger.Error(err))
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(body), &raws); err != nil {
		s.logger.Warn("listing decode failed",
			logger.String("source", s.name),
			logger.String("url", s.endpoint),
			logger.Error(err))
		return nil
	}

	items := make([]content.Item, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		var rec listingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			// Some listing APIs mix metadata objects into the array.
			continue
		}

		title, url := rec.title(), rec.url()
		if title == "" || url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		items = append(items, content.Item{
			Title:       title,
			URL:         url,
			Description: rec.Description,
			PublishedAt: rec.publishedAt(),
			Source:      s.name,
			Tags:        rec.tags(),
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}

	s.logger.Debug("listing fetched",
		logger.String("source", s.name),
		logger.String("category", category.String()),
		logger.Int("items", len(items)))
	return items
}
