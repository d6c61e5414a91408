// Package scraper provides page rendering backends and HTML text utilities.
//
// A Browser hands out Pages; each Page renders one URL at a time into HTML
// and must be closed by the caller. Two backends are provided: a plain
// HTTP fetcher with a reader-service fallback for JS-heavy pages, and a
// headless Chrome driven through chromedp.
package scraper

import (
	"context"
	"time"
)

// Browser is a shared rendering capability.
type Browser interface {
	// NewPage acquires a page. The caller must Close it.
	NewPage(ctx context.Context) (Page, error)
	// Close releases the browser and every page it still holds.
	Close() error
}

// Page renders documents.
type Page interface {
	// Render loads url and returns the resulting HTML.
	Render(ctx context.Context, url string) (string, error)
	Close() error
}

// Options configures a Browser.
type Options struct {
	UserAgent  string            `yaml:"user_agent"`
	Timeout    time.Duration     `yaml:"timeout" env:"NEWSDESK_SCRAPER_TIMEOUT"`
	RetryCount int               `yaml:"retry_count"`
	Headers    map[string]string `yaml:"headers"`

	// ReaderURL is the prefix of a reader service used when a page renders
	// to almost no text over plain HTTP. Empty disables the fallback.
	ReaderURL string `yaml:"reader_url"`

	// Chrome settings.
	ExecPath  string        `yaml:"exec_path" env:"NEWSDESK_CHROME_PATH"`
	NoSandbox bool          `yaml:"no_sandbox"`
	Settle    time.Duration `yaml:"settle"`
}

// DefaultReaderURL is the Jina Reader endpoint.
const DefaultReaderURL = "https://r.jina.ai/"

// DefaultOptions returns sensible defaults for rendering.
func DefaultOptions() Options {
	return Options{
		UserAgent:  "Mozilla/5.0 (compatible; newsdesk/1.0; +https://github.com/RobinCoderZhao/newsdesk)",
		Timeout:    15 * time.Second,
		RetryCount: 2,
		ReaderURL:  DefaultReaderURL,
		Settle:     time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	return o
}
