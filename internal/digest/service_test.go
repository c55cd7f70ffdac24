package digest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techpath/content-pipeline/internal/catalog"
	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/digest"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/publisher"
)

type stubRunner struct {
	reports  map[content.Category]publisher.ShareReport
	calls    []content.Category
	channels []string
	cancel   context.CancelFunc
}

func (s *stubRunner) ShareContent(_ context.Context, category content.Category, channelID string) publisher.ShareReport {
	s.calls = append(s.calls, category)
	s.channels = append(s.channels, channelID)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return s.reports[category]
}

type stubLedger struct {
	records []*catalog.PostingRecord
	err     error
}

func (s *stubLedger) UpsertShared(_ context.Context, rec *catalog.PostingRecord) (*catalog.PostingRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func postedReport(category content.Category, titles ...string) publisher.ShareReport {
	items := make([]content.CuratedItem, 0, len(titles))
	for _, title := range titles {
		items = append(items, content.CuratedItem{
			Item: content.Item{Title: title, URL: "https://example.com/" + title},
		})
	}
	return publisher.ShareReport{
		Category:   category,
		Outcome:    publisher.OutcomePosted,
		Posted:     len(items),
		MessageRef: "1724230800.000100",
		Items:      items,
	}
}

func TestRunOncePostsEveryJob(t *testing.T) {
	runner := &stubRunner{reports: map[content.Category]publisher.ShareReport{
		content.CategoryTechNews:    postedReport(content.CategoryTechNews, "a", "b"),
		content.CategoryJobListings: postedReport(content.CategoryJobListings, "c"),
	}}
	ledger := &stubLedger{}

	svc := digest.NewService(digest.Deps{
		Runner: runner,
		Ledger: ledger,
		Jobs: []digest.Job{
			{Category: content.CategoryTechNews, ChannelID: "C01"},
			{Category: content.CategoryJobListings, ChannelID: "C02"},
		},
		RateLimitRPS: 100,
		Logger:       logger.NewNopLogger(),
	})

	summary := svc.RunOnce(context.Background())

	assert.Equal(t, 2, summary.Jobs)
	assert.Equal(t, 2, summary.Posted)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)

	assert.Equal(t, []content.Category{content.CategoryTechNews, content.CategoryJobListings}, runner.calls)
	assert.Equal(t, []string{"C01", "C02"}, runner.channels)

	require.Len(t, ledger.records, 3)
	first := ledger.records[0]
	assert.Equal(t, "tech_news", first.Category)
	assert.Equal(t, "a", first.Title)
	assert.True(t, first.SharedInSlack)
	assert.Equal(t, "1724230800.000100", first.MessageRef)
}

func TestRunOnceTalliesMixedOutcomes(t *testing.T) {
	runner := &stubRunner{reports: map[content.Category]publisher.ShareReport{
		content.CategoryTechNews: postedReport(content.CategoryTechNews, "a"),
		content.CategoryJobListings: {
			Category: content.CategoryJobListings,
			Outcome:  publisher.OutcomeSkipped,
			Reason:   "no new content",
		},
		content.CategoryLearningResources: {
			Category: content.CategoryLearningResources,
			Outcome:  publisher.OutcomeFailed,
			Reason:   "gateway post failed",
		},
	}}

	svc := digest.NewService(digest.Deps{
		Runner: runner,
		Jobs: []digest.Job{
			{Category: content.CategoryTechNews, ChannelID: "C01"},
			{Category: content.CategoryJobListings, ChannelID: "C02"},
			{Category: content.CategoryLearningResources, ChannelID: "C03"},
		},
		RateLimitRPS: 100,
		Logger:       logger.NewNopLogger(),
	})

	summary := svc.RunOnce(context.Background())

	assert.Equal(t, 3, summary.Jobs)
	assert.Equal(t, 1, summary.Posted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunOnceLedgerFailureDoesNotFailJob(t *testing.T) {
	runner := &stubRunner{reports: map[content.Category]publisher.ShareReport{
		content.CategoryTechNews: postedReport(content.CategoryTechNews, "a"),
	}}
	ledger := &stubLedger{err: errors.New("connection refused")}

	svc := digest.NewService(digest.Deps{
		Runner:       runner,
		Ledger:       ledger,
		Jobs:         []digest.Job{{Category: content.CategoryTechNews, ChannelID: "C01"}},
		RateLimitRPS: 100,
		Logger:       logger.NewNopLogger(),
	})

	summary := svc.RunOnce(context.Background())

	assert.Equal(t, 1, summary.Posted, "the digest went out even if cataloging it did not")
	assert.Zero(t, summary.Failed)
	assert.Empty(t, ledger.records)
}

func TestRunOnceCancelledContextCountsRemainingAsFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	runner := &stubRunner{
		reports: map[content.Category]publisher.ShareReport{
			content.CategoryTechNews: postedReport(content.CategoryTechNews, "a"),
		},
		cancel: cancel,
	}

	svc := digest.NewService(digest.Deps{
		Runner: runner,
		Jobs: []digest.Job{
			{Category: content.CategoryTechNews, ChannelID: "C01"},
			{Category: content.CategoryJobListings, ChannelID: "C02"},
			{Category: content.CategoryLearningResources, ChannelID: "C03"},
		},
		RateLimitRPS: 100,
		Logger:       logger.NewNopLogger(),
	})

	summary := svc.RunOnce(ctx)

	assert.Equal(t, 1, summary.Posted)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, runner.calls, 1, "no jobs should run after cancellation")
}

func TestRunOnceWithoutLedger(t *testing.T) {
	runner := &stubRunner{reports: map[content.Category]publisher.ShareReport{
		content.CategoryTechNews: postedReport(content.CategoryTechNews, "a"),
	}}

	svc := digest.NewService(digest.Deps{
		Runner:       runner,
		Jobs:         []digest.Job{{Category: content.CategoryTechNews, ChannelID: "C01"}},
		RateLimitRPS: 100,
		Logger:       logger.NewNopLogger(),
	})

	summary := svc.RunOnce(context.Background())
	assert.Equal(t, 1, summary.Posted)
}

func TestRunOnceNoJobs(t *testing.T) {
	svc := digest.NewService(digest.Deps{
		Runner: &stubRunner{},
		Logger: logger.NewNopLogger(),
	})

	summary := svc.RunOnce(context.Background())

	assert.Zero(t, summary.Jobs)
	assert.Zero(t, summary.Posted)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)
}
