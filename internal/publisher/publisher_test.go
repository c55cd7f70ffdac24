package publisher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/curator"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/publisher"
)

type stubAggregator struct {
	items       []content.Item
	panics      bool
	gotCategory content.Category
	gotLimit    int
}

func (s *stubAggregator) Aggregate(_ context.Context, category content.Category, limit int) []content.Item {
	s.gotCategory = category
	s.gotLimit = limit
	if s.panics {
		panic("aggregator exploded")
	}
	return s.items
}

type stubCurator struct {
	panics bool
	gotReq curator.Request
}

func (s *stubCurator) Curate(_ context.Context, req curator.Request) content.CurationResult {
	s.gotReq = req
	if s.panics {
		panic("curator exploded")
	}
	return curator.Fallback(req.Items, req.Category)
}

type stubGateway struct {
	ref        string
	err        error
	calls      int
	gotChannel string
	gotBlocks  []slack.Block
}

func (s *stubGateway) PostMessage(_ context.Context, channelID string, blocks []slack.Block) (string, error) {
	s.calls++
	s.gotChannel = channelID
	s.gotBlocks = blocks
	if s.err != nil {
		return "", s.err
	}
	return s.ref, nil
}

type stubTracker struct {
	shared  map[string]bool
	marked  []string
	markErr error
}

func (s *stubTracker) WasShared(_ context.Context, _ content.Category, url string) bool {
	return s.shared[url]
}

func (s *stubTracker) MarkShared(_ context.Context, _ content.Category, url string) error {
	s.marked = append(s.marked, url)
	return s.markErr
}

func items(titles ...string) []content.Item {
	out := make([]content.Item, 0, len(titles))
	for _, title := range titles {
		out = append(out, content.Item{
			Title:  title,
			URL:    "https://example.com/" + title,
			Source: "test",
		})
	}
	return out
}

func newPublisher(deps publisher.Deps) *publisher.Publisher {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	return publisher.New(deps)
}

func headerText(t *testing.T, block slack.Block) string {
	t.Helper()
	header, ok := block.(*slack.HeaderBlock)
	require.True(t, ok, "expected header block, got %T", block)
	return header.Text.Text
}

func sectionText(t *testing.T, block slack.Block) string {
	t.Helper()
	section, ok := block.(*slack.SectionBlock)
	require.True(t, ok, "expected section block, got %T", block)
	return section.Text.Text
}

func TestShareContentPostsDigest(t *testing.T) {
	t.Parallel()

	agg := &stubAggregator{items: items("One", "Two", "Three")}
	cur := &stubCurator{}
	gw := &stubGateway{ref: "1724.0001"}
	tracker := &stubTracker{shared: map[string]bool{}}

	pub := newPublisher(publisher.Deps{
		Aggregator: agg,
		Curator:    cur,
		Gateway:    gw,
		Tracker:    tracker,
	})

	report := pub.ShareContent(context.Background(), content.CategoryTechNews, "C0TECHNEWS")

	assert.Equal(t, publisher.OutcomePosted, report.Outcome)
	assert.Equal(t, 3, report.Aggregated)
	assert.Equal(t, 3, report.Posted)
	assert.Equal(t, "1724.0001", report.MessageRef)
	assert.Len(t, report.Items, 3)
	assert.Equal(t, publisher.DefaultDigestLimit, agg.gotLimit)
	assert.Equal(t, "C0TECHNEWS", gw.gotChannel)
	assert.Len(t, tracker.marked, 3)

	require.NotEmpty(t, gw.gotBlocks)
	assert.Equal(t, "🚀 Tech News Digest", headerText(t, gw.gotBlocks[0]))
	_, isContext := gw.gotBlocks[len(gw.gotBlocks)-1].(*slack.ContextBlock)
	assert.True(t, isContext, "digest should end with a context footer")
}

func TestShareContentSkipsWhenNothingAggregated(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{ref: "1724.0002"}
	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{},
		Curator:    &stubCurator{},
		Gateway:    gw,
	})

	report := pub.ShareContent(context.Background(), content.CategoryJobListings, "C0JOBS")

	assert.Equal(t, publisher.OutcomeSkipped, report.Outcome)
	assert.Equal(t, "no new content", report.Reason)
	assert.Zero(t, gw.calls, "gateway must not be called for an empty digest")
}

func TestShareContentSkipsWhenEverythingAlreadyShared(t *testing.T) {
	t.Parallel()

	batch := items("One", "Two")
	gw := &stubGateway{ref: "1724.0003"}
	tracker := &stubTracker{shared: map[string]bool{
		batch[0].URL: true,
		batch[1].URL: true,
	}}

	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{items: batch},
		Curator:    &stubCurator{},
		Gateway:    gw,
		Tracker:    tracker,
	})

	report := pub.ShareContent(context.Background(), content.CategoryTechNews, "C0TECHNEWS")

	assert.Equal(t, publisher.OutcomeSkipped, report.Outcome)
	assert.Equal(t, 2, report.Aggregated)
	assert.Zero(t, gw.calls)
}

func TestShareContentCuratesOnlyFreshItems(t *testing.T) {
	t.Parallel()

	batch := items("Old", "New")
	cur := &stubCurator{}
	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{items: batch},
		Curator:    cur,
		Gateway:    &stubGateway{ref: "1724.0004"},
		Tracker:    &stubTracker{shared: map[string]bool{batch[0].URL: true}},
	})

	report := pub.ShareContent(context.Background(), content.CategoryTechNews, "C0TECHNEWS")

	assert.Equal(t, publisher.OutcomePosted, report.Outcome)
	require.Len(t, cur.gotReq.Items, 1)
	assert.Equal(t, "New", cur.gotReq.Items[0].Title)
}

func TestShareContentSwallowsGatewayError(t *testing.T) {
	t.Parallel()

	tracker := &stubTracker{shared: map[string]bool{}}
	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{items: items("One")},
		Curator:    &stubCurator{},
		Gateway:    &stubGateway{err: errors.New("channel_not_found")},
		Tracker:    tracker,
	})

	report := pub.ShareContent(context.Background(), content.CategoryTechNews, "C0MISSING")

	assert.Equal(t, publisher.OutcomeFailed, report.Outcome)
	assert.Equal(t, "gateway post failed", report.Reason)
	assert.Empty(t, tracker.marked, "failed posts must not be marked as shared")
}

func TestShareContentWithoutGateway(t *testing.T) {
	t.Parallel()

	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{items: items("One")},
		Curator:    &stubCurator{},
	})

	report := pub.ShareContent(context.Background(), content.CategoryTechNews, "C0TECHNEWS")

	assert.Equal(t, publisher.OutcomeFailed, report.Outcome)
	assert.Equal(t, "messaging gateway not configured", report.Reason)
}

func TestShareContentKeepsMarkFailuresQuiet(t *testing.T) {
	t.Parallel()

	tracker := &stubTracker{shared: map[string]bool{}, markErr: errors.New("redis down")}
	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{items: items("One")},
		Curator:    &stubCurator{},
		Gateway:    &stubGateway{ref: "1724.0005"},
		Tracker:    tracker,
	})

	report := pub.ShareContent(context.Background(), content.CategoryTechNews, "C0TECHNEWS")

	assert.Equal(t, publisher.OutcomePosted, report.Outcome)
	assert.Len(t, tracker.marked, 1)
}

func TestShareContentSurvivesPanic(t *testing.T) {
	t.Parallel()

	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{panics: true},
		Curator:    &stubCurator{},
		Gateway:    &stubGateway{},
	})

	report := pub.ShareContent(context.Background(), content.CategoryTechNews, "C0TECHNEWS")

	assert.Equal(t, publisher.OutcomeFailed, report.Outcome)
	assert.Equal(t, "internal error", report.Reason)
}

func TestCuratedJobsHeaderFirst(t *testing.T) {
	t.Parallel()

	agg := &stubAggregator{items: items("Junior Dev at Acme")}
	cur := &stubCurator{}
	pub := newPublisher(publisher.Deps{Aggregator: agg, Curator: cur})

	blocks := pub.CuratedJobs(context.Background(), "react, remote")

	require.NotEmpty(t, blocks)
	assert.Equal(t, "💼 Curated Job Opportunities", headerText(t, blocks[0]))
	assert.Equal(t, content.CategoryJobListings, agg.gotCategory)
	assert.Equal(t, publisher.InteractiveLimit, agg.gotLimit)
	assert.Equal(t, "react, remote", cur.gotReq.Audience)
}

func TestCuratedJobsEmptyResultsStillAnswer(t *testing.T) {
	t.Parallel()

	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{},
		Curator:    &stubCurator{},
	})

	blocks := pub.CuratedJobs(context.Background(), "")

	require.Len(t, blocks, 2)
	assert.Equal(t, "💼 Curated Job Opportunities", headerText(t, blocks[0]))
	assert.Contains(t, sectionText(t, blocks[1]), "Nothing fresh")
}

func TestCuratedLearningResourcesPanicApology(t *testing.T) {
	t.Parallel()

	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{items: items("Course")},
		Curator:    &stubCurator{panics: true},
	})

	blocks := pub.CuratedLearningResources(context.Background(), "css")

	require.Len(t, blocks, 2)
	assert.Equal(t, "😔 Something went wrong", headerText(t, blocks[0]))
	assert.Contains(t, sectionText(t, blocks[1]), "try again")
}

func TestCuratedLearningResourcesRendersItems(t *testing.T) {
	t.Parallel()

	batch := []content.Item{{
		Title:  "Learn HTML <fast> & free",
		URL:    "https://example.com/html",
		Source: "freecodecamp",
	}}
	pub := newPublisher(publisher.Deps{
		Aggregator: &stubAggregator{items: batch},
		Curator:    &stubCurator{},
	})

	blocks := pub.CuratedLearningResources(context.Background(), "")

	// header, fallback summary, one item section
	require.Len(t, blocks, 3)
	assert.Equal(t, "📚 Curated Learning Resources", headerText(t, blocks[0]))
	assert.Contains(t, sectionText(t, blocks[1]), "Top learning_resources items")

	itemSection := sectionText(t, blocks[2])
	assert.Contains(t, itemSection, "Learn HTML &lt;fast&gt; &amp; free")
	assert.Contains(t, itemSection, "https://example.com/html")
	assert.Contains(t, itemSection, string(content.DifficultyBeginner))
	assert.Contains(t, itemSection, curator.FallbackWhyValuable)
}
