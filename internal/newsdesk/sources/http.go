package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/metrics"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

const (
	defaultUserAgent = "newsdesk/1.0 (+https://github.com/RobinCoderZhao/newsdesk)"
	maxBodyBytes     = 8 << 20
)

// requester performs rate-limited, time-bounded GETs for one adapter.
type requester struct {
	name      string
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

func newRequester(name string, opts Options) requester {
	r := requester{
		name:      name,
		client:    opts.HTTPClient,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
	}
	if r.client == nil {
		r.client = &http.Client{}
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.userAgent == "" {
		r.userAgent = defaultUserAgent
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("source", name)
	if opts.RatePerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}
	return r
}

// get fetches endpoint?params and returns the body. The call is bounded
// by the adapter timeout, including time spent waiting on the limiter.
func (r requester) get(ctx context.Context, endpoint string, params url.Values, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	target := endpoint
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		target += sep + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, application/atom+xml, */*")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("%s returned %d: %s", r.name, resp.StatusCode, strings.TrimSpace(snippet))
	}
	return body, nil
}

func (r requester) getJSON(ctx context.Context, endpoint string, params url.Values, header http.Header, out any) error {
	body, err := r.get(ctx, endpoint, params, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.name, err)
	}
	return nil
}

// skipped records a call that could not be attempted (missing key).
func (r requester) skipped(op, reason string) []news.Article {
	metrics.SourceFetches.WithLabelValues(r.name, op, "skipped").Inc()
	r.logger.Debug("source skipped", "op", op, "reason", reason)
	return nil
}

// observe converts the outcome of one call into the never-fail contract:
// errors are logged and counted, and yield an empty result.
func (r requester) observe(op string, start time.Time, articles []news.Article, err error) []news.Article {
	metrics.SourceDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetches.WithLabelValues(r.name, op, "error").Inc()
		r.logger.Warn("source fetch failed", "op", op, "error", err, "duration", time.Since(start))
		return nil
	}
	if len(articles) == 0 {
		metrics.SourceFetches.WithLabelValues(r.name, op, "empty").Inc()
		return nil
	}
	metrics.SourceFetches.WithLabelValues(r.name, op, "ok").Inc()
	metrics.SourceArticles.WithLabelValues(r.name).Add(float64(len(articles)))
	r.logger.Debug("source fetch complete", "op", op, "articles", len(articles), "duration", time.Since(start))
	return articles
}

func clampPageSize(pageSize, max int) int {
	if pageSize <= 0 {
		return 20
	}
	if pageSize > max {
		return max
	}
	return pageSize
}
