package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"github.com/techpath/content-pipeline/internal/catalog"
	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/publisher"
)

const (
	defaultContentLimit = 20
	maxContentLimit     = 50
	maxCatalogLimit     = 100

	healthCheckTimeout = 2 * time.Second
)

// ContentPublisher runs the aggregate, curate and post flow.
type ContentPublisher interface {
	ShareContent(ctx context.Context, category content.Category, channelID string) publisher.ShareReport
	CuratedJobs(ctx context.Context, keywords string) []slack.Block
	CuratedLearningResources(ctx context.Context, topic string) []slack.Block
}

// ContentAggregator fetches raw items without curation.
type ContentAggregator interface {
	Aggregate(ctx context.Context, category content.Category, limit int) []content.Item
}

// CatalogStore reads the posting history.
type CatalogStore interface {
	ListShared(ctx context.Context, category string, limit int) ([]catalog.PostingRecord, error)
}

// Pinger confirms a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for the content pipeline API.
type Handler struct {
	publisher  ContentPublisher
	aggregator ContentAggregator
	catalog    CatalogStore
	db         Pinger
	cache      Pinger
	logger     logger.Logger
	version    string
}

// HandlerDeps carries the handler dependencies. Catalog, DB and Cache may be
// nil when the deployment runs without Postgres or Redis.
type HandlerDeps struct {
	Publisher  ContentPublisher
	Aggregator ContentAggregator
	Catalog    CatalogStore
	DB         Pinger
	Cache      Pinger
	Logger     logger.Logger
	Version    string
}

// NewHandler creates a new API handler.
func NewHandler(deps HandlerDeps) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Handler{
		publisher:  deps.Publisher,
		aggregator: deps.Aggregator,
		catalog:    deps.Catalog,
		db:         deps.DB,
		cache:      deps.Cache,
		logger:     log,
		version:    deps.Version,
	}
}

// HealthCheck handles GET /health. The pipeline fails open without Postgres
// or Redis, so an unreachable store degrades the status instead of failing
// the check.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{
		"database": h.checkStore(ctx, h.db),
		"redis":    h.checkStore(ctx, h.cache),
	}

	status := "healthy"
	for _, state := range checks {
		if state == "unavailable" {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

func (h *Handler) checkStore(ctx context.Context, store Pinger) string {
	if store == nil {
		return "disabled"
	}
	if err := store.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", logger.Error(err))
		return "unavailable"
	}
	return "ok"
}

// CuratedJobs handles GET /api/v1/jobs.
func (h *Handler) CuratedJobs(c *gin.Context) {
	keywords := c.Query("keywords")

	h.logger.Debug("Serving curated jobs", logger.String("keywords", keywords))

	blocks := h.publisher.CuratedJobs(c.Request.Context(), keywords)
	c.JSON(http.StatusOK, gin.H{
		"blocks": blocks,
		"count":  len(blocks),
	})
}

// CuratedResources handles GET /api/v1/resources.
func (h *Handler) CuratedResources(c *gin.Context) {
	topic := c.Query("topic")

	h.logger.Debug("Serving curated resources", logger.String("topic", topic))

	blocks := h.publisher.CuratedLearningResources(c.Request.Context(), topic)
	c.JSON(http.StatusOK, gin.H{
		"blocks": blocks,
		"count":  len(blocks),
	})
}

// GetContent handles GET /api/v1/content/:category. It returns aggregated
// items without running them through curation.
func (h *Handler) GetContent(c *gin.Context) {
	category, err := content.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := parseLimit(c.Query("limit"), defaultContentLimit, maxContentLimit)

	items := h.aggregator.Aggregate(c.Request.Context(), category, limit)
	if items == nil {
		items = []content.Item{}
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"items":    items,
		"count":    len(items),
	})
}

// ShareRequest triggers a digest post to a channel.
type ShareRequest struct {
	Category  string `json:"category" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
}

// ShareContent handles POST /api/v1/share.
func (h *Handler) ShareContent(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid share request", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := content.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Share requested",
		logger.String("category", category.String()),
		logger.String("channel_id", req.ChannelID))

	report := h.publisher.ShareContent(c.Request.Context(), category, req.ChannelID)

	status := http.StatusOK
	if report.Outcome == publisher.OutcomeFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, report)
}

// ListCatalog handles GET /api/v1/catalog/:category. It returns the posting
// history recorded by digest runs.
func (h *Handler) ListCatalog(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog is not configured"})
		return
	}

	category, err := content.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := parseLimit(c.Query("limit"), catalog.DefaultListLimit, maxCatalogLimit)

	records, err := h.catalog.ListShared(c.Request.Context(), category.String(), limit)
	if err != nil {
		h.logger.Error("Failed to list catalog",
			logger.String("category", category.String()),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []catalog.PostingRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"items":    records,
		"count":    len(records),
	})
}

func parseLimit(raw string, fallback, ceiling int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
