// Package config loads and validates the content-pipeline configuration.
//
// Configuration comes from a YAML file, with environment variables taking
// precedence for deploy-specific values and secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/techpath/content-pipeline/internal/content"
)

// Defaults applied when the config file leaves a value unset.
const (
	DefaultPort            = 8085
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultCurationTimeout = 30 * time.Second
	DefaultDigestLimit     = 10
	DefaultDedupTTL        = 14 * 24 * time.Hour
	DefaultSchedule        = "0 9 * * 1-5"
	DefaultRateLimitRPS    = 1
	DefaultDatabasePort    = 5432
	DefaultDatabaseUser    = "postgres"
	DefaultDatabaseName    = "content_pipeline"
	DefaultSSLMode         = "disable"
)

// Config is the root configuration for the service.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Slack    SlackConfig    `yaml:"slack"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Sources  []SourceConfig `yaml:"sources"`
	Digest   DigestConfig   `yaml:"digest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL settings for the share catalog. An empty
// Host disables catalog persistence.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis settings for duplicate tracking. An empty URL
// disables duplicate filtering.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

// AIConfig holds curation model settings. An empty APIKey keeps the pipeline
// on the deterministic fallback.
type AIConfig struct {
	APIKey string `yaml:"api_key"`
}

// SlackConfig holds messaging gateway settings.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
}

// PipelineConfig holds aggregation and curation tuning.
type PipelineConfig struct {
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	CurationTimeout time.Duration `yaml:"curation_timeout"`
	DigestLimit     int           `yaml:"digest_limit"`
}

// SourceConfig describes one content source adapter.
type SourceConfig struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	URL        string   `yaml:"url"`
	Categories []string `yaml:"categories"`
}

// DigestConfig describes the scheduled digest run.
type DigestConfig struct {
	Schedule     string            `yaml:"schedule"`
	RateLimitRPS int               `yaml:"rate_limit_rps"`
	Jobs         []DigestJobConfig `yaml:"jobs"`
}

// DigestJobConfig pairs a category with its destination channel.
type DigestJobConfig struct {
	Category string `yaml:"category"`
	Channel  string `yaml:"channel"`
}

// Load reads the configuration from path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()
	cfg.overrideWithEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDatabasePort
	}
	if c.Database.User == "" {
		c.Database.User = DefaultDatabaseUser
	}
	if c.Database.DBName == "" {
		c.Database.DBName = DefaultDatabaseName
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultSSLMode
	}
	if c.Redis.DedupTTL == 0 {
		c.Redis.DedupTTL = DefaultDedupTTL
	}
	if c.Pipeline.FetchTimeout == 0 {
		c.Pipeline.FetchTimeout = DefaultFetchTimeout
	}
	if c.Pipeline.CurationTimeout == 0 {
		c.Pipeline.CurationTimeout = DefaultCurationTimeout
	}
	if c.Pipeline.DigestLimit == 0 {
		c.Pipeline.DigestLimit = DefaultDigestLimit
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = DefaultSchedule
	}
	if c.Digest.RateLimitRPS == 0 {
		c.Digest.RateLimitRPS = DefaultRateLimitRPS
	}
}

// overrideWithEnvVars applies environment variables over file values so
// deployments can inject secrets without touching the config file.
func (c *Config) overrideWithEnvVars() {
	if v := os.Getenv("APP_DEBUG"); v != "" {
		c.Debug = parseBool(v)
	}
	if v := os.Getenv("PIPELINE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_PIPELINE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("POSTGRES_PIPELINE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_PIPELINE_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("POSTGRES_PIPELINE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("POSTGRES_PIPELINE_DB"); v != "" {
		c.Database.DBName = v
	}
	if v := os.Getenv("POSTGRES_PIPELINE_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Pipeline.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.Pipeline.FetchTimeout)
	}
	if c.Pipeline.CurationTimeout <= 0 {
		return fmt.Errorf("curation timeout must be positive, got %s", c.Pipeline.CurationTimeout)
	}
	if c.Pipeline.DigestLimit <= 0 {
		return fmt.Errorf("digest limit must be positive, got %d", c.Pipeline.DigestLimit)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one content source is required")
	}
	for i := range c.Sources {
		if err := c.Sources[i].validate(); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
	}
	for i, job := range c.Digest.Jobs {
		if _, err := content.ParseCategory(job.Category); err != nil {
			return fmt.Errorf("digest job %d: %w", i, err)
		}
		if job.Channel == "" {
			return fmt.Errorf("digest job %d: channel is required", i)
		}
	}
	return nil
}

func (s *SourceConfig) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}
	switch s.Kind {
	case "feed", "listing":
	default:
		return fmt.Errorf("kind must be feed or listing, got %q", s.Kind)
	}
	if len(s.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for _, raw := range s.Categories {
		if _, err := content.ParseCategory(raw); err != nil {
			return err
		}
	}
	return nil
}

// parseBool interprets common truthy strings.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}
