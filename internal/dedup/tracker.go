// Package dedup tracks which items were already shared, backed by Redis
// with a TTL so sources can resurface after a quiet period.
package dedup

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: URL fingerprint for key lookup, not a security boundary
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/logger"
)

// DefaultTTL keeps share markers for two weeks.
const DefaultTTL = 14 * 24 * time.Hour

// Tracker remembers shared item URLs in Redis.
type Tracker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

// NewTracker creates a Tracker. A non-positive ttl falls back to DefaultTTL.
func NewTracker(client redis.UniversalClient, ttl time.Duration, log logger.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

// key builds the marker key for an item. URLs are hashed so arbitrary query
// strings cannot produce unbounded keys.
func (t *Tracker) key(category content.Category, url string) string {
	sum := sha1.Sum([]byte(url)) //nolint:gosec // G401: fingerprint only
	return fmt.Sprintf("shared:item:%s:%s", category, hex.EncodeToString(sum[:]))
}

// WasShared reports whether url was already shared for category. It fails
// open: when Redis cannot answer, the item counts as fresh so a flaky cache
// degrades to an occasional duplicate rather than a silent digest.
func (t *Tracker) WasShared(ctx context.Context, category content.Category, url string) bool {
	exists, err := t.client.Exists(ctx, t.key(category, url)).Result()
	if err != nil {
		t.logger.Warn("Failed to check shared marker, treating as fresh",
			logger.String("category", category.String()),
			logger.String("url", url),
			logger.Error(err))
		return false
	}
	return exists > 0
}

// MarkShared records that url was shared for category.
func (t *Tracker) MarkShared(ctx context.Context, category content.Category, url string) error {
	key := t.key(category, url)
	if err := t.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set shared marker: %w", err)
	}
	t.logger.Debug("Marked item as shared",
		logger.String("category", category.String()),
		logger.String("url", url))
	return nil
}

// Ping reports whether the backing Redis is reachable.
func (t *Tracker) Ping(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Clear removes every shared marker. Intended for tests and manual resets.
func (t *Tracker) Clear(ctx context.Context) error {
	iter := t.client.Scan(ctx, 0, "shared:item:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete shared marker: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan shared markers: %w", err)
	}
	return nil
}
