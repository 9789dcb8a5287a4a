// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Search    SearchConfig    `mapstructure:"search"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs scheduler and crawl pipeline behavior.
type CrawlerConfig struct {
	Concurrency      int    `mapstructure:"concurrency"`
	SeedHostname     string `mapstructure:"seed_hostname"`
	SeedURL          string `mapstructure:"seed_url"`
	UserAgent        string `mapstructure:"user_agent"`
	IgnoreRobots     bool   `mapstructure:"ignore_robots"`
	IdleBackoffSec   int    `mapstructure:"idle_backoff_seconds"`
	BatchPauseSec    int    `mapstructure:"batch_pause_seconds"`
	ContentCharLimit int    `mapstructure:"content_char_limit"`
}

// HTTPConfig bounds outbound fetches.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int `mapstructure:"max_body_bytes"`
}

// StorageConfig selects the frontier/registry/index backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig controls raw page archival.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for indexed-page notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// RateLimitConfig throttles per-domain fetch rates.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// SearchConfig tunes the ranking surface.
type SearchConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.seed_hostname", "github.com")
	v.SetDefault("crawler.seed_url", "https://github.com")
	v.SetDefault("crawler.user_agent", "webdex-bot/0.1")
	v.SetDefault("crawler.ignore_robots", false)
	v.SetDefault("crawler.idle_backoff_seconds", 5)
	v.SetDefault("crawler.batch_pause_seconds", 1)
	v.SetDefault("crawler.content_char_limit", 2000)
	v.SetDefault("http.timeout_seconds", 5)
	v.SetDefault("http.max_body_bytes", 5*1024*1024)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.max_conns", 8)
	v.SetDefault("archive.provider", "off")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("search.page_size", 15)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.ContentCharLimit <= 0 {
		return fmt.Errorf("crawler.content_char_limit must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0")
	}
	switch c.Storage.Provider {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set when storage.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	switch c.Archive.Provider {
	case "off", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set when archive.provider is local")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be > 0")
	}
	return nil
}
