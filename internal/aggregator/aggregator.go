// Package aggregator fans out to the source adapters registered for a
// category and merges their results deterministically.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/metrics"
	"github.com/techpath/content-pipeline/internal/sources"
)

// DefaultFetchTimeout bounds a single adapter fetch.
const DefaultFetchTimeout = 10 * time.Second

// Aggregator collects content from every adapter registered for a category.
type Aggregator struct {
	registry     *sources.Registry
	fetchTimeout time.Duration
	logger       logger.Logger
	metrics      *metrics.Metrics
}

// New creates an Aggregator over registry. A non-positive fetchTimeout falls
// back to DefaultFetchTimeout.
func New(registry *sources.Registry, fetchTimeout time.Duration, log logger.Logger, m *metrics.Metrics) *Aggregator {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Aggregator{
		registry:     registry,
		fetchTimeout: fetchTimeout,
		logger:       log,
		metrics:      m,
	}
}

// Aggregate fetches from every adapter registered for category concurrently
// and merges the results in adapter-priority order, preserving each
// adapter's internal ordering. The merged list is truncated to limit; a
// non-positive limit yields nothing. Aggregate never returns an error: a
// failed adapter contributes an empty slice and the rest proceed.
func (a *Aggregator) Aggregate(ctx context.Context, category content.Category, limit int) []content.Item {
	if limit <= 0 {
		return nil
	}

	srcs := a.registry.SourcesFor(category)
	if len(srcs) == 0 {
		a.logger.Debug("No adapters registered for category",
			logger.String("category", category.String()))
		return nil
	}

	start := time.Now()

	// Each adapter writes only its own slot, so the merge order is fixed
	// by the registry regardless of which fetch finishes first.
	results := make([][]content.Item, len(srcs))
	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(slot int, src sources.ContentSource) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("Adapter panicked",
						logger.String("source", src.Name()),
						logger.String("category", category.String()),
						logger.Any("panic", r))
				}
			}()

			fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
			defer cancel()
			results[slot] = src.Fetch(fetchCtx, category, limit)
		}(i, src)
	}
	wg.Wait()

	merged := make([]content.Item, 0, limit)
	for i, items := range results {
		if len(items) == 0 {
			continue
		}
		a.logger.Debug("Adapter returned items",
			logger.String("source", srcs[i].Name()),
			logger.Int("count", len(items)))
		merged = append(merged, items...)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}

	a.metrics.RecordItemsAggregated(category.String(), len(merged))
	a.logger.Info("Aggregated content",
		logger.String("category", category.String()),
		logger.Int("sources", len(srcs)),
		logger.Int("items", len(merged)),
		logger.Duration("duration", time.Since(start)))
	return merged
}
