// Package enricher extracts the full text of a single article on demand.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/metrics"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/pkg/scraper"
)

var errNoBody = errors.New("no article body found")

// DefaultTimeout bounds one enrichment, page acquisition included.
const DefaultTimeout = 30 * time.Second

// Result is the enrichment of one article.
type Result struct {
	Content     string     `json:"content"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Author      string     `json:"author,omitempty"`
	// Extracted is false when Content is the fallback notice.
	Extracted bool `json:"extracted"`
}

// Enricher renders article pages through a shared browser.
type Enricher struct {
	browser scraper.Browser
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an enricher over browser. A zero timeout selects DefaultTimeout.
func New(browser scraper.Browser, timeout time.Duration, logger *slog.Logger) *Enricher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{browser: browser, timeout: timeout, logger: logger, now: time.Now}
}

// Placeholder is the content returned when extraction fails.
func Placeholder(articleURL string) string {
	return fmt.Sprintf("We couldn't extract the full text of this article. Read it at the original source: %s", articleURL)
}

// Enrich renders rawURL and extracts its body, image, publish date and
// author. Only a malformed URL is an error; every other failure yields a
// placeholder result.
func (e *Enricher) Enrich(ctx context.Context, rawURL string) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !news.IsAbsoluteURL(rawURL) {
		return Result{}, fmt.Errorf("%w: url must be an absolute http(s) url", news.ErrInvalidInput)
	}
	base, _ := url.Parse(rawURL)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	doc, err := e.render(ctx, rawURL)
	if err != nil {
		return e.fallback(rawURL, start, err), nil
	}

	got, ok := extract(doc, base)
	if !ok {
		return e.fallback(rawURL, start, errNoBody), nil
	}

	res := Result{
		Content:   got.Content,
		ImageURL:  got.ImageURL,
		Author:    got.Author,
		Extracted: true,
	}
	if got.PublishedAt != nil {
		published := news.ClampPublished(*got.PublishedAt, e.now())
		res.PublishedAt = &published
	}
	metrics.Enrichments.WithLabelValues("ok").Inc()
	e.logger.Debug("article enriched", "url", rawURL, "chars", len(res.Content), "duration", time.Since(start))
	return res, nil
}

// render holds a page for exactly one navigation.
func (e *Enricher) render(ctx context.Context, rawURL string) (string, error) {
	page, err := e.browser.NewPage(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			e.logger.Warn("close page failed", "url", rawURL, "error", err)
		}
	}()
	return page.Render(ctx, rawURL)
}

func (e *Enricher) fallback(rawURL string, start time.Time, err error) Result {
	metrics.Enrichments.WithLabelValues("placeholder").Inc()
	e.logger.Warn("enrichment failed", "url", rawURL, "error", err, "duration", time.Since(start))
	return Result{Content: Placeholder(rawURL)}
}
