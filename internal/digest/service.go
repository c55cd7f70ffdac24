// Package digest runs the configured digest jobs against the publisher
// and records what was shared in the catalog.
package digest

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/techpath/content-pipeline/internal/catalog"
	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/publisher"
)

const (
	// DefaultRateLimitRPS spaces out gateway posts so a long job list
	// does not trip Slack's rate limits.
	DefaultRateLimitRPS = 1

	ledgerWriteTimeout = 5 * time.Second
)

// ShareRunner aggregates, curates and posts a single digest.
type ShareRunner interface {
	ShareContent(ctx context.Context, category content.Category, channelID string) publisher.ShareReport
}

// Ledger persists a record of every item that made it into a digest.
type Ledger interface {
	UpsertShared(ctx context.Context, rec *catalog.PostingRecord) (*catalog.PostingRecord, error)
}

// Job pairs a content category with the channel its digest goes to.
type Job struct {
	Category  content.Category
	ChannelID string
}

// Summary describes one digest run across all configured jobs.
type Summary struct {
	Jobs     int           `json:"jobs"`
	Posted   int           `json:"posted"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Deps carries the service dependencies.
type Deps struct {
	Runner       ShareRunner
	Ledger       Ledger
	Jobs         []Job
	RateLimitRPS int
	Logger       logger.Logger
}

// Service executes digest jobs sequentially with a rate limit between posts.
type Service struct {
	runner  ShareRunner
	ledger  Ledger
	jobs    []Job
	limiter *rate.Limiter
	logger  logger.Logger
}

func NewService(deps Deps) *Service {
	rps := deps.RateLimitRPS
	if rps <= 0 {
		rps = DefaultRateLimitRPS
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Service{
		runner:  deps.Runner,
		ledger:  deps.Ledger,
		jobs:    deps.Jobs,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:  log,
	}
}

// RunOnce walks every configured job and returns a tally of the outcomes.
// A failing job never stops the run; only a cancelled context does, and the
// jobs left unposted are counted as failed.
func (s *Service) RunOnce(ctx context.Context) Summary {
	start := time.Now()
	summary := Summary{Jobs: len(s.jobs)}

	for i, job := range s.jobs {
		if err := s.limiter.Wait(ctx); err != nil {
			summary.Failed += len(s.jobs) - i
			s.logger.Warn("Digest run interrupted",
				logger.Error(err),
				logger.Int("jobs_remaining", len(s.jobs)-i))
			break
		}

		report := s.runner.ShareContent(ctx, job.Category, job.ChannelID)

		switch report.Outcome {
		case publisher.OutcomePosted:
			summary.Posted++
			s.recordShared(ctx, report)
		case publisher.OutcomeSkipped:
			summary.Skipped++
			s.logger.Debug("Digest skipped",
				logger.String("category", string(job.Category)),
				logger.String("reason", report.Reason))
		default:
			summary.Failed++
			s.logger.Warn("Digest failed",
				logger.String("category", string(job.Category)),
				logger.String("reason", report.Reason))
		}
	}

	summary.Duration = time.Since(start)

	s.logger.Info("Digest run complete",
		logger.Int("jobs", summary.Jobs),
		logger.Int("posted", summary.Posted),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
		logger.Duration("duration", summary.Duration))

	return summary
}

// recordShared writes one catalog row per posted item. The digest already
// went out, so a ledger failure only gets logged.
func (s *Service) recordShared(ctx context.Context, report publisher.ShareReport) {
	if s.ledger == nil || len(report.Items) == 0 {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, ledgerWriteTimeout)
	defer cancel()

	for _, item := range report.Items {
		rec := &catalog.PostingRecord{
			Category:      string(report.Category),
			Title:         item.Title,
			URL:           item.URL,
			SharedInSlack: true,
			MessageRef:    report.MessageRef,
		}

		if _, err := s.ledger.UpsertShared(writeCtx, rec); err != nil {
			s.logger.Warn("Failed to catalog shared item",
				logger.String("url", item.URL),
				logger.Error(err))
		}
	}
}
