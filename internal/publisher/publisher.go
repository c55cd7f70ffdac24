// Package publisher drives the aggregate, curate, render, post flow. Its
// entry points are total: they log and absorb every failure instead of
// surfacing it, because they sit behind unattended schedules and chat
// commands where an error return has nowhere useful to go.
package publisher

import (
	"context"
	"time"

	"github.com/slack-go/slack"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/curator"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/metrics"
)

const (
	// InteractiveLimit bounds how many items an interactive request
	// aggregates before curation.
	InteractiveLimit = 15

	// DefaultDigestLimit bounds a scheduled digest when config does not
	// say otherwise.
	DefaultDigestLimit = 10

	postTimeout = 15 * time.Second
)

// ContentAggregator merges adapter results for a category.
type ContentAggregator interface {
	Aggregate(ctx context.Context, category content.Category, limit int) []content.Item
}

// ContentCurator annotates an aggregated batch.
type ContentCurator interface {
	Curate(ctx context.Context, req curator.Request) content.CurationResult
}

// MessageGateway posts rendered blocks to a channel and returns a message
// reference.
type MessageGateway interface {
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block) (string, error)
}

// SharedTracker remembers which items were already posted. WasShared must
// fail open: when the tracker cannot answer, the item counts as fresh.
type SharedTracker interface {
	WasShared(ctx context.Context, category content.Category, url string) bool
	MarkShared(ctx context.Context, category content.Category, url string) error
}

// ShareOutcome classifies a share attempt for the scheduled caller.
type ShareOutcome string

const (
	OutcomePosted  ShareOutcome = "posted"
	OutcomeSkipped ShareOutcome = "skipped"
	OutcomeFailed  ShareOutcome = "failed"
)

// ShareReport tells the caller what happened to one share attempt.
type ShareReport struct {
	Category   content.Category      `json:"category"`
	ChannelID  string                `json:"channel_id"`
	Outcome    ShareOutcome          `json:"outcome"`
	Reason     string                `json:"reason,omitempty"`
	Aggregated int                   `json:"aggregated"`
	Posted     int                   `json:"posted"`
	MessageRef string                `json:"message_ref,omitempty"`
	Items      []content.CuratedItem `json:"items,omitempty"`
}

// Publisher owns the pipeline's outward-facing entry points.
type Publisher struct {
	aggregator  ContentAggregator
	curator     ContentCurator
	gateway     MessageGateway
	tracker     SharedTracker
	digestLimit int
	logger      logger.Logger
	metrics     *metrics.Metrics
}

// Deps wires a Publisher. Gateway and Tracker are optional: without a
// gateway digests are skipped, without a tracker duplicate filtering is
// disabled.
type Deps struct {
	Aggregator  ContentAggregator
	Curator     ContentCurator
	Gateway     MessageGateway
	Tracker     SharedTracker
	DigestLimit int
	Logger      logger.Logger
	Metrics     *metrics.Metrics
}

// New creates a Publisher.
func New(deps Deps) *Publisher {
	limit := deps.DigestLimit
	if limit <= 0 {
		limit = DefaultDigestLimit
	}
	return &Publisher{
		aggregator:  deps.Aggregator,
		curator:     deps.Curator,
		gateway:     deps.Gateway,
		tracker:     deps.Tracker,
		digestLimit: limit,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// ShareContent runs one scheduled digest for category into channelID. It
// never returns an error and never panics: an unattended scheduler tick must
// survive anything this does.
func (p *Publisher) ShareContent(ctx context.Context, category content.Category, channelID string) (report ShareReport) {
	report = ShareReport{Category: category, ChannelID: channelID, Outcome: OutcomeFailed}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Share attempt panicked",
				logger.String("category", category.String()),
				logger.Any("panic", r))
			report.Outcome = OutcomeFailed
			report.Reason = "internal error"
		}
	}()

	start := time.Now()

	items := p.aggregator.Aggregate(ctx, category, p.digestLimit)
	report.Aggregated = len(items)

	fresh := p.filterShared(ctx, category, items)
	if len(fresh) == 0 {
		report.Outcome = OutcomeSkipped
		report.Reason = "no new content"
		p.metrics.RecordDigestSkipped(category.String())
		p.logger.Info("Nothing to share",
			logger.String("category", category.String()),
			logger.Int("aggregated", len(items)))
		return report
	}

	result := p.curator.Curate(ctx, curator.Request{Category: category, Items: fresh})
	if len(result.Items) == 0 {
		report.Outcome = OutcomeSkipped
		report.Reason = "curation selected nothing"
		p.metrics.RecordDigestSkipped(category.String())
		p.logger.Info("Curation selected nothing to share",
			logger.String("category", category.String()))
		return report
	}

	if p.gateway == nil {
		report.Reason = "messaging gateway not configured"
		p.logger.Error("Cannot share content without a messaging gateway",
			logger.String("category", category.String()))
		return report
	}

	postCtx, cancel := context.WithTimeout(ctx, postTimeout)
	ref, err := p.gateway.PostMessage(postCtx, channelID, digestBlocks(category, result))
	cancel()
	if err != nil {
		report.Reason = "gateway post failed"
		p.metrics.RecordGatewayError()
		p.logger.Error("Failed to post digest",
			logger.String("category", category.String()),
			logger.String("channel_id", channelID),
			logger.Error(err))
		return report
	}

	p.markShared(ctx, category, result.Items)

	report.Outcome = OutcomePosted
	report.Reason = ""
	report.Posted = len(result.Items)
	report.MessageRef = ref
	report.Items = result.Items
	p.metrics.RecordDigestPosted(category.String())
	p.logger.Info("Shared digest",
		logger.String("category", category.String()),
		logger.String("channel_id", channelID),
		logger.Int("posted", len(result.Items)),
		logger.String("message_ref", ref),
		logger.Duration("duration", time.Since(start)))
	return report
}

// CuratedJobs answers an interactive jobs request. The returned block list
// always starts with a header block, even when every upstream call fails.
func (p *Publisher) CuratedJobs(ctx context.Context, keywords string) []slack.Block {
	return p.interactive(ctx, content.CategoryJobListings, keywords, "💼 Curated Job Opportunities")
}

// CuratedLearningResources answers an interactive learning-resources
// request with the same always-answer contract as CuratedJobs.
func (p *Publisher) CuratedLearningResources(ctx context.Context, topic string) []slack.Block {
	return p.interactive(ctx, content.CategoryLearningResources, topic, "📚 Curated Learning Resources")
}

func (p *Publisher) interactive(ctx context.Context, category content.Category, audience, title string) (blocks []slack.Block) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Interactive request panicked",
				logger.String("category", category.String()),
				logger.Any("panic", r))
			blocks = apologyBlocks()
		}
	}()

	start := time.Now()
	items := p.aggregator.Aggregate(ctx, category, InteractiveLimit)
	result := p.curator.Curate(ctx, curator.Request{
		Category: category,
		Items:    items,
		Audience: audience,
	})

	p.logger.Info("Answered interactive request",
		logger.String("category", category.String()),
		logger.Int("items", len(result.Items)),
		logger.Duration("duration", time.Since(start)))
	return interactiveBlocks(title, result)
}

// filterShared drops items the tracker knows were already posted. A nil or
// failing tracker keeps everything: a duplicate post beats a silent digest.
func (p *Publisher) filterShared(ctx context.Context, category content.Category, items []content.Item) []content.Item {
	if p.tracker == nil || len(items) == 0 {
		return items
	}
	fresh := make([]content.Item, 0, len(items))
	for _, it := range items {
		if p.tracker.WasShared(ctx, category, it.URL) {
			p.logger.Debug("Item already shared, skipping",
				logger.String("category", category.String()),
				logger.String("url", it.URL))
			continue
		}
		fresh = append(fresh, it)
	}
	return fresh
}

func (p *Publisher) markShared(ctx context.Context, category content.Category, items []content.CuratedItem) {
	if p.tracker == nil {
		return
	}
	for i := range items {
		if err := p.tracker.MarkShared(ctx, category, items[i].URL); err != nil {
			p.logger.Warn("Failed to mark item as shared",
				logger.String("url", items[i].URL),
				logger.Error(err))
		}
	}
}
