package dedup_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/dedup"
	"github.com/techpath/content-pipeline/internal/logger"
)

func newTracker(t *testing.T, ttl time.Duration) (*dedup.Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return dedup.NewTracker(client, ttl, logger.NewNopLogger()), mr
}

func TestTrackerMarkAndCheck(t *testing.T) {
	tracker, _ := newTracker(t, time.Hour)
	ctx := context.Background()

	const url = "https://example.com/article?utm_source=feed"

	assert.False(t, tracker.WasShared(ctx, content.CategoryTechNews, url))
	require.NoError(t, tracker.MarkShared(ctx, content.CategoryTechNews, url))
	assert.True(t, tracker.WasShared(ctx, content.CategoryTechNews, url))
}

func TestTrackerScopesByCategory(t *testing.T) {
	tracker, _ := newTracker(t, time.Hour)
	ctx := context.Background()

	const url = "https://example.com/shared-everywhere"

	require.NoError(t, tracker.MarkShared(ctx, content.CategoryTechNews, url))

	assert.True(t, tracker.WasShared(ctx, content.CategoryTechNews, url))
	assert.False(t, tracker.WasShared(ctx, content.CategoryJobListings, url))
}

func TestTrackerMarkersExpire(t *testing.T) {
	tracker, mr := newTracker(t, time.Minute)
	ctx := context.Background()

	const url = "https://example.com/expiring"

	require.NoError(t, tracker.MarkShared(ctx, content.CategoryTechNews, url))
	assert.True(t, tracker.WasShared(ctx, content.CategoryTechNews, url))

	mr.FastForward(2 * time.Minute)
	assert.False(t, tracker.WasShared(ctx, content.CategoryTechNews, url))
}

func TestTrackerFailsOpenWhenRedisDown(t *testing.T) {
	tracker, mr := newTracker(t, time.Hour)
	ctx := context.Background()

	mr.Close()

	assert.False(t, tracker.WasShared(ctx, content.CategoryTechNews, "https://example.com/x"))
	assert.Error(t, tracker.MarkShared(ctx, content.CategoryTechNews, "https://example.com/x"))
}

func TestTrackerClear(t *testing.T) {
	tracker, _ := newTracker(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, tracker.MarkShared(ctx, content.CategoryTechNews, "https://example.com/a"))
	require.NoError(t, tracker.MarkShared(ctx, content.CategoryJobListings, "https://example.com/b"))

	require.NoError(t, tracker.Clear(ctx))

	assert.False(t, tracker.WasShared(ctx, content.CategoryTechNews, "https://example.com/a"))
	assert.False(t, tracker.WasShared(ctx, content.CategoryJobListings, "https://example.com/b"))
}
