// Package app wires the pipeline components together for the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/techpath/content-pipeline/internal/aggregator"
	"github.com/techpath/content-pipeline/internal/api"
	"github.com/techpath/content-pipeline/internal/catalog"
	"github.com/techpath/content-pipeline/internal/config"
	"github.com/techpath/content-pipeline/internal/content"
	"github.com/techpath/content-pipeline/internal/curator"
	"github.com/techpath/content-pipeline/internal/dedup"
	"github.com/techpath/content-pipeline/internal/digest"
	"github.com/techpath/content-pipeline/internal/logger"
	"github.com/techpath/content-pipeline/internal/metrics"
	"github.com/techpath/content-pipeline/internal/publisher"
	"github.com/techpath/content-pipeline/internal/slackgw"
	"github.com/techpath/content-pipeline/internal/sources"
)

const (
	serviceName = "content-pipeline"

	redisPingTimeout = 5 * time.Second
)

// App holds the assembled pipeline and its backing stores.
type App struct {
	config     *config.Config
	logger     logger.Logger
	metrics    *metrics.Metrics
	redis      redis.UniversalClient
	db         *sqlx.DB
	catalog    *catalog.Repository
	tracker    *dedup.Tracker
	aggregator *aggregator.Aggregator
	publisher  *publisher.Publisher
	digest     *digest.Service
	version    string
}

// Options contains configuration for creating a new App.
type Options struct {
	ConfigPath string
	Debug      bool
	Version    string
}

// New loads configuration, connects the optional stores and assembles the
// pipeline. Postgres and Redis are only required when configured; the
// pipeline itself runs without either.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Debug {
		cfg.Debug = true
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", serviceName),
		logger.String("version", opts.Version),
	)

	a := &App{
		config:  cfg,
		logger:  appLogger,
		metrics: metrics.New(nil),
		version: opts.Version,
	}

	if storeErr := a.connectStores(); storeErr != nil {
		_ = appLogger.Sync()
		return nil, storeErr
	}

	a.buildPipeline()

	return a, nil
}

// connectStores dials Redis and Postgres when they are configured. A store
// that is configured but unreachable fails startup; one that is simply
// absent from the config downgrades the pipeline with a warning.
func (a *App) connectStores() error {
	cfg := a.config

	if cfg.Redis.URL == "" {
		a.logger.Warn("Redis not configured, duplicate filtering disabled")
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		pingErr := client.Ping(ctx).Err()
		cancel()
		if pingErr != nil {
			return fmt.Errorf("connect to Redis: %w", pingErr)
		}

		a.redis = client
		a.tracker = dedup.NewTracker(client, cfg.Redis.DedupTTL, a.logger)
	}

	if cfg.Database.Host == "" {
		a.logger.Warn("Postgres not configured, share catalog disabled")
		return nil
	}

	db, err := catalog.NewPostgresConnection(catalog.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("connect to Postgres: %w", err)
	}

	a.db = db
	a.catalog = catalog.NewRepository(db)
	return nil
}

func (a *App) buildPipeline() {
	cfg := a.config

	httpClient := &http.Client{Timeout: cfg.Pipeline.FetchTimeout}

	registry := sources.NewRegistry()
	for _, src := range cfg.Sources {
		kind, err := sources.ParseKind(src.Kind)
		if err != nil {
			// Validate already rejected unknown kinds.
			continue
		}

		var adapter sources.ContentSource
		switch kind {
		case sources.KindFeed:
			adapter = sources.NewFeedSource(src.Name, src.URL, httpClient, a.logger)
		case sources.KindListing:
			adapter = sources.NewListingSource(src.Name, src.URL, httpClient, a.logger)
		}

		for _, raw := range src.Categories {
			category, catErr := content.ParseCategory(raw)
			if catErr != nil {
				continue
			}
			registry.Register(category, adapter)
		}
	}

	a.aggregator = aggregator.New(registry, cfg.Pipeline.FetchTimeout, a.logger, a.metrics)

	var completion curator.CompletionClient
	if cfg.AI.APIKey == "" {
		a.logger.Warn("Anthropic API key not set, curation runs on the deterministic fallback")
	} else {
		completion = curator.NewAnthropicClient(cfg.AI.APIKey)
	}
	contentCurator := curator.New(completion, cfg.Pipeline.CurationTimeout, a.logger, a.metrics)

	pubDeps := publisher.Deps{
		Aggregator:  a.aggregator,
		Curator:     contentCurator,
		DigestLimit: cfg.Pipeline.DigestLimit,
		Logger:      a.logger,
		Metrics:     a.metrics,
	}
	if cfg.Slack.BotToken == "" {
		a.logger.Warn("Slack bot token not set, digests will be skipped")
	} else {
		gateway, err := slackgw.NewClient(cfg.Slack.BotToken, a.logger)
		if err != nil {
			a.logger.Warn("Failed to create Slack client, digests will be skipped",
				logger.Error(err))
		} else {
			pubDeps.Gateway = gateway
		}
	}
	if a.tracker != nil {
		pubDeps.Tracker = a.tracker
	}
	a.publisher = publisher.New(pubDeps)

	jobs := make([]digest.Job, 0, len(cfg.Digest.Jobs))
	for _, job := range cfg.Digest.Jobs {
		category, err := content.ParseCategory(job.Category)
		if err != nil {
			continue
		}
		jobs = append(jobs, digest.Job{Category: category, ChannelID: job.Channel})
	}

	digestDeps := digest.Deps{
		Runner:       a.publisher,
		Jobs:         jobs,
		RateLimitRPS: cfg.Digest.RateLimitRPS,
		Logger:       a.logger,
	}
	if a.catalog != nil {
		digestDeps.Ledger = a.catalog
	}
	a.digest = digest.NewService(digestDeps)
}

// Router builds the HTTP API around the assembled pipeline.
func (a *App) Router() *gin.Engine {
	deps := api.HandlerDeps{
		Publisher:  a.publisher,
		Aggregator: a.aggregator,
		Logger:     a.logger,
		Version:    a.version,
	}
	if a.catalog != nil {
		deps.Catalog = a.catalog
		deps.DB = a.catalog
	}
	if a.tracker != nil {
		deps.Cache = a.tracker
	}
	return api.NewRouter(api.NewHandler(deps), a.config.Debug, a.logger)
}

// ClearSharedCache drops every shared-item marker from Redis.
func (a *App) ClearSharedCache(ctx context.Context) error {
	if a.tracker == nil {
		return errors.New("redis is not configured")
	}
	return a.tracker.Clear(ctx)
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Publisher returns the assembled publisher.
func (a *App) Publisher() *publisher.Publisher {
	return a.publisher
}

// Digest returns the digest service.
func (a *App) Digest() *digest.Service {
	return a.digest
}

// Close releases the store connections and flushes the logger.
func (a *App) Close() error {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close Postgres connection", logger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	return a.logger.Sync()
}
