package scraper

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	maxPageBytes = 10 << 20
	// Pages with less visible text than this are assumed to be rendered
	// client-side.
	minDirectText = 500
)

// HTTPBrowser renders pages with plain HTTP GETs. It holds no per-page
// state, so pages are cheap.
type HTTPBrowser struct {
	client *http.Client
	opts   Options
}

// NewHTTPBrowser creates a new HTTP-based browser.
func NewHTTPBrowser(opts Options) *HTTPBrowser {
	opts = opts.withDefaults()
	return &HTTPBrowser{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

func (b *HTTPBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpPage{b: b}, nil
}

func (b *HTTPBrowser) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

type httpPage struct {
	b *HTTPBrowser
}

// Render fetches url directly. When the document carries almost no text
// (likely a JS-rendered SPA) the reader service is asked for the content
// instead and its plain text is wrapped into paragraphs.
func (p *httpPage) Render(ctx context.Context, url string) (string, error) {
	raw, err := p.b.fetchDirect(ctx, url)
	if err != nil {
		return "", err
	}
	if p.b.opts.ReaderURL == "" || len([]rune(ExtractText(raw))) >= minDirectText {
		return raw, nil
	}

	text, err := p.b.fetchViaReader(ctx, url)
	if err != nil || len(text) <= len(ExtractText(raw)) {
		return raw, nil
	}
	return wrapParagraphs(Title(raw), text), nil
}

func (p *httpPage) Close() error { return nil }

// fetchDirect performs a standard HTTP fetch with retries on transport
// errors and 5xx responses.
func (b *HTTPBrowser) fetchDirect(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= b.opts.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		body, retry, err := b.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return "", fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (b *HTTPBrowser) get(ctx context.Context, url string) (body string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", b.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range b.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", true, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("status %d", resp.StatusCode)
	}
	return string(data), false, nil
}

// fetchViaReader asks the reader service to render the page.
// See: https://r.jina.ai
func (b *HTTPBrowser) fetchViaReader(ctx context.Context, targetURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout+15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.opts.ReaderURL+targetURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Return-Format", "text")
	req.Header.Set("User-Agent", b.opts.UserAgent)

	// The reader needs more time than a direct fetch.
	client := &http.Client{Timeout: b.opts.Timeout + 15*time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// wrapParagraphs turns blank-line separated text into a minimal article
// document.
func wrapParagraphs(title, text string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>")
	sb.WriteString(html.EscapeString(title))
	sb.WriteString("</title></head><body><article>")
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(para))
		sb.WriteString("</p>")
	}
	sb.WriteString("</article></body></html>")
	return sb.String()
}
