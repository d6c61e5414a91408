package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
)

// ErrClosed is returned when a page is requested from a closed browser.
var ErrClosed = errors.New("browser closed")

// ChromeBrowser renders pages in headless Chrome. The browser process is
// started on the first NewPage and shared by every page after that; each
// page is its own tab.
type ChromeBrowser struct {
	opts Options

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	closed        bool
}

// NewChromeBrowser creates a browser. No process is started until the
// first page is requested.
func NewChromeBrowser(opts Options) *ChromeBrowser {
	return &ChromeBrowser{opts: opts.withDefaults()}
}

func (b *ChromeBrowser) start() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(b.opts.UserAgent),
		chromedp.Flag("headless", true),
		chromedp.DisableGPU,
	)
	if b.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ExecPath))
	}
	if b.opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	// Run with no actions launches the process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	b.browserCtx = browserCtx
	b.cancelAlloc = cancelAlloc
	b.cancelBrowser = cancelBrowser
	return browserCtx, nil
}

func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browserCtx, err := b.start()
	if err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	return &chromePage{ctx: tabCtx, cancel: cancel, opts: b.opts}, nil
}

// Close shuts the browser process down.
func (b *ChromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.browserCtx == nil {
		return nil
	}
	b.cancelBrowser()
	b.cancelAlloc()
	b.browserCtx = nil
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
}

// Render navigates the tab to url, waits for the body and a short settle
// period, then returns the document's outer HTML. The call is bounded by
// both ctx and the configured timeout.
func (p *chromePage) Render(ctx context.Context, url string) (string, error) {
	runCtx, cancel := context.WithTimeout(p.ctx, p.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if p.opts.Settle > 0 {
		actions = append(actions, chromedp.Sleep(p.opts.Settle))
	}
	var doc string
	actions = append(actions, chromedp.OuterHTML("html", &doc, chromedp.ByQuery))

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return doc, nil
}

// Close closes the tab.
func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
