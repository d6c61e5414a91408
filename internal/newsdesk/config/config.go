// Package config holds the newsdesk configuration file model.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/aggregator"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/categorize"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/freshness"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/sources"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/writeback"
	appconfig "github.com/RobinCoderZhao/newsdesk/pkg/config"
	"github.com/RobinCoderZhao/newsdesk/pkg/llm"
	"github.com/RobinCoderZhao/newsdesk/pkg/logger"
	"github.com/RobinCoderZhao/newsdesk/pkg/scraper"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "newsdesk.yaml"

// Config is the main newsdesk configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Database   storage.Config            `yaml:"database"`
	Sources    SourcesConfig             `yaml:"sources"`
	Policy     freshness.Policy          `yaml:"policy"`
	Breaking   aggregator.BreakingConfig `yaml:"breaking"`
	Enricher   EnricherConfig            `yaml:"enricher"`
	Writeback  writeback.Config          `yaml:"writeback"`
	Categories []categorize.Rule         `yaml:"categories"`
	LLM        llm.Config                `yaml:"llm"`
	Log        logger.Config             `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr" env:"NEWSDESK_ADDR"`
	AdminSecret  string        `yaml:"admin_secret" env:"NEWSDESK_ADMIN_SECRET"` // HS256 key for forced refresh
	CORSOrigins  []string      `yaml:"cors_origins" env:"NEWSDESK_CORS_ORIGINS"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SourcesConfig configures the adapter chain.
type SourcesConfig struct {
	Timeout       time.Duration `yaml:"timeout" env:"NEWSDESK_SOURCE_TIMEOUT"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	UserAgent     string        `yaml:"user_agent"`

	NewsAPI struct {
		APIKey  string `yaml:"api_key" env:"NEWSAPI_KEY"`
		Country string `yaml:"country"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"newsapi"`
	GNews struct {
		APIKey  string `yaml:"api_key" env:"GNEWS_API_KEY"`
		Lang    string `yaml:"lang"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"gnews"`
	Guardian struct {
		APIKey  string `yaml:"api_key" env:"GUARDIAN_API_KEY"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"guardian"`
	Community struct {
		Disabled bool                                     `yaml:"disabled" env:"NEWSDESK_COMMUNITY_DISABLED"`
		BaseURL  string                                   `yaml:"base_url"`
		Topics   map[news.Category]sources.CommunityFeeds `yaml:"topics"`
	} `yaml:"community"`
}

// EnricherConfig selects the page renderer used for full-text extraction.
type EnricherConfig struct {
	Browser string          `yaml:"browser" env:"NEWSDESK_BROWSER"` // "http" or "chrome"
	Timeout time.Duration   `yaml:"timeout" env:"NEWSDESK_ENRICH_TIMEOUT"`
	Scraper scraper.Options `yaml:"scraper"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			CORSOrigins:  []string{"*"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Database: storage.Config{Driver: storage.SQLite, DSN: "newsdesk.db"},
		Sources: SourcesConfig{
			Timeout:       10 * time.Second,
			RatePerMinute: 60,
			UserAgent:     "newsdesk/1.0",
		},
		Policy:    freshness.DefaultPolicy(),
		Breaking:  aggregator.BreakingConfig{Keywords: aggregator.DefaultBreakingKeywords},
		Enricher:  EnricherConfig{Browser: "http", Timeout: 30 * time.Second, Scraper: scraper.DefaultOptions()},
		Writeback: writeback.DefaultConfig(),
		LLM:       llm.DefaultConfig(),
		Log:       logger.Config{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults
// with environment overrides applied.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()
	if err := appconfig.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the binary cannot start with and normalizes
// category names in the keyword rules and community topics.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case storage.SQLite, storage.Postgres:
	default:
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Enricher.Browser {
	case "http", "chrome":
	default:
		return fmt.Errorf("enricher.browser: want http or chrome, got %q", c.Enricher.Browser)
	}
	for i, r := range c.Categories {
		cat, err := news.ParseCategory(string(r.Category))
		if err != nil || cat == "" {
			return fmt.Errorf("categories: unknown category %q", r.Category)
		}
		c.Categories[i].Category = cat
	}
	if len(c.Sources.Community.Topics) > 0 {
		topics := make(map[news.Category]sources.CommunityFeeds, len(c.Sources.Community.Topics))
		for key, feeds := range c.Sources.Community.Topics {
			cat, err := news.ParseCategory(string(key))
			if err != nil || cat == "" {
				return fmt.Errorf("sources.community.topics: unknown category %q", key)
			}
			if _, dup := topics[cat]; dup {
				return fmt.Errorf("sources.community.topics: category %q listed twice", cat)
			}
			topics[cat] = feeds
		}
		c.Sources.Community.Topics = topics
	}
	return nil
}

// Registry builds the adapter chain in priority order: NewsAPI, GNews,
// Guardian, then the community fallback.
func (c SourcesConfig) Registry(log *slog.Logger) *sources.Registry {
	opts := func(base string) sources.Options {
		return sources.Options{
			BaseURL:       base,
			Timeout:       c.Timeout,
			RatePerMinute: c.RatePerMinute,
			UserAgent:     c.UserAgent,
			Logger:        log,
		}
	}
	reg := sources.NewRegistry(
		sources.NewNewsAPI(c.NewsAPI.APIKey, c.NewsAPI.Country, opts(c.NewsAPI.BaseURL)),
		sources.NewGNews(c.GNews.APIKey, c.GNews.Lang, opts(c.GNews.BaseURL)),
		sources.NewGuardian(c.Guardian.APIKey, opts(c.Guardian.BaseURL)),
	)
	if !c.Community.Disabled {
		reg.Register(sources.NewCommunity(c.Community.Topics, opts(c.Community.BaseURL)))
	}
	return reg
}

// NewBrowser creates the renderer named by Browser.
func (c EnricherConfig) NewBrowser() scraper.Browser {
	if c.Browser == "chrome" {
		return scraper.NewChromeBrowser(c.Scraper)
	}
	return scraper.NewHTTPBrowser(c.Scraper)
}
