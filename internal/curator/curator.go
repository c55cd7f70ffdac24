// Package curator ranks and annotates aggregated content with a single
// bounded model call per batch, degrading to a deterministic pass-through
// whenever the call or its response is unusable.
package curator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/metrics"
)

const (
	// FallbackWhyValuable annotates every item the fallback passes through.
	FallbackWhyValuable = "Potentially relevant for learning journey"

	// DefaultCallTimeout bounds a single completion call.
	DefaultCallTimeout = 30 * time.Second
)

// CompletionClient is the single-call surface the curator needs from a model
// provider.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request carries one curation batch.
type Request struct {
	Category content.Category
	Items    []content.Item
	// Audience is an optional focus hint from an interactive caller, such
	// as keywords from a jobs request.
	Audience string
}

// Curator annotates aggregated batches.
type Curator struct {
	client  CompletionClient
	timeout time.Duration
	logger  logger.Logger
	metrics *metrics.Metrics
}

// New creates a Curator. A nil client keeps every batch on the fallback. A
// non-positive timeout falls back to DefaultCallTimeout.
func New(client CompletionClient, timeout time.Duration, log logger.Logger, m *metrics.Metrics) *Curator {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Curator{
		client:  client,
		timeout: timeout,
		logger:  log,
		metrics: m,
	}
}

// Curate issues at most one completion call for the batch and returns the
// curated batch. It never returns an error: any failure degrades to the
// deterministic fallback. An empty batch short-circuits without calling the
// model at all.
func (c *Curator) Curate(ctx context.Context, req Request) content.CurationResult {
	if len(req.Items) == 0 {
		return Fallback(req.Items, req.Category)
	}
	if c.client == nil {
		c.logger.Debug("No completion client configured, using fallback",
			logger.String("category", req.Category.String()))
		c.metrics.RecordCurationFallback("unconfigured")
		return Fallback(req.Items, req.Category)
	}

	prompt := buildPrompt(req)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.client.Complete(callCtx, prompt)
	duration := time.Since(start)
	if err != nil {
		c.logger.Warn("Curation call failed, using fallback",
			logger.String("category", req.Category.String()),
			logger.Duration("duration", duration),
			logger.Error(err))
		c.metrics.RecordCurationFallback("unavailable")
		return Fallback(req.Items, req.Category)
	}

	result, err := decodeResult(text)
	if err != nil {
		c.logger.Warn("Curation response unusable, using fallback",
			logger.String("category", req.Category.String()),
			logger.Error(err))
		c.metrics.RecordCurationFallback("malformed")
		return Fallback(req.Items, req.Category)
	}

	result = sanitize(result, req)
	c.logger.Info("Curated content",
		logger.String("category", req.Category.String()),
		logger.Int("offered", len(req.Items)),
		logger.Int("selected", len(result.Items)),
		logger.Duration("duration", duration))
	return result
}

// Fallback wraps items unchanged with boilerplate annotations. It is pure:
// no I/O, no model call, identical output for identical input.
func Fallback(items []content.Item, category content.Category) content.CurationResult {
	curated := make([]content.CuratedItem, 0, len(items))
	for _, it := range items {
		curated = append(curated, content.CuratedItem{
			Item:        it,
			WhyValuable: FallbackWhyValuable,
			Difficulty:  content.DifficultyBeginner,
		})
	}
	return content.CurationResult{
		Items:   curated,
		Summary: fallbackSummary(category),
	}
}

func fallbackSummary(category content.Category) string {
	return fmt.Sprintf("Top %s items", category)
}

func buildPrompt(req Request) string {
	payload, err := json.MarshalIndent(req.Items, "", "  ")
	if err != nil {
		// content.Item marshals unconditionally; keep the call alive anyway.
		payload = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are curating %s for an online community of career changers learning software development.\n\n",
		promptFraming(req.Category))
	if req.Audience != "" {
		fmt.Fprintf(&b, "The requester is especially interested in: %s\n\n", req.Audience)
	}
	fmt.Fprintf(&b, "Candidate items as JSON:\n%s\n\n", payload)
	fmt.Fprintf(&b, "Select the most valuable items (at most %d, best first) and respond with JSON only, no prose, in exactly this shape:\n", len(req.Items))
	b.WriteString(`{
  "items": [
    {
      "title": "copied from the candidate",
      "url": "copied from the candidate",
      "source": "copied from the candidate",
      "why_valuable": "one sentence on why this helps a career changer",
      "difficulty": "beginner|intermediate|advanced|entry_level|junior|mid_level|senior",
      "recommended_for": ["short audience tags"]
    }
  ],
  "summary": "one line for the digest heading",
  "recommended_for": ["short audience tags"]
}`)
	return b.String()
}

func promptFraming(category content.Category) string {
	switch category {
	case content.CategoryJobListings:
		return "junior-friendly job listings"
	case content.CategoryLearningResources:
		return "learning resources"
	default:
		return "technology news"
	}
}

// decodeResult parses the model reply strictly: it must be the requested
// JSON object, though a markdown code fence around it is tolerated.
func decodeResult(text string) (content.CurationResult, error) {
	raw := stripFence(strings.TrimSpace(text))
	if raw == "" {
		return content.CurationResult{}, errors.New("empty response")
	}

	var result content.CurationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return content.CurationResult{}, fmt.Errorf("failed to decode curation response: %w", err)
	}
	if result.Items == nil {
		return content.CurationResult{}, errors.New("curation response missing items")
	}
	return result, nil
}

// stripFence removes a ```json wrapper when the model adds one.
func stripFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}

// sanitize enforces the result invariants: never more items than were
// offered, vocabulary-only difficulties, and non-empty annotations.
func sanitize(result content.CurationResult, req Request) content.CurationResult {
	if len(result.Items) > len(req.Items) {
		result.Items = result.Items[:len(req.Items)]
	}
	for i := range result.Items {
		it := &result.Items[i]
		it.Difficulty = content.NormalizeDifficulty(it.Difficulty.String())
		if it.WhyValuable == "" {
			it.WhyValuable = FallbackWhyValuable
		}
	}
	if result.Summary == "" {
		result.Summary = fallbackSummary(req.Category)
	}
	return result
}
