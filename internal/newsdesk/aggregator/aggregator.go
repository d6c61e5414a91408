// Package aggregator serves paged article listings. It reads through the
// store, walks the source chain on a cache miss, merges and deduplicates
// the results, and hands fresh articles to the write-back queue.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/categorize"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/freshness"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/metrics"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/sources"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// maxFetch caps how many articles one source is asked for.
	maxFetch = 100
)

// Store is the persistence the aggregator reads through.
type Store interface {
	Upsert(ctx context.Context, articles []news.Article) (int, error)
	FindMany(ctx context.Context, f store.Filter, skip, take int) ([]news.Article, error)
	Count(ctx context.Context, f store.Filter) (int, error)
	DeleteMany(ctx context.Context, f store.PurgeFilter) (int64, error)
}

// Persister accepts articles for asynchronous persistence.
type Persister interface {
	Enqueue(label string, articles []news.Article) bool
}

// Options tunes an Aggregator. Zero values select defaults.
type Options struct {
	Policy   freshness.Policy
	Breaking BreakingConfig
	Logger   *slog.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// Aggregator is the entry point of the ingestion pipeline.
type Aggregator struct {
	registry   *sources.Registry
	store      Store
	writer     Persister
	classifier *categorize.Classifier
	policy     freshness.Policy
	breaking   BreakingConfig
	logger     *slog.Logger
	now        func() time.Time
	inflight   singleflight.Group
}

// New creates an aggregator. classifier may be nil for the default rules.
func New(registry *sources.Registry, st Store, writer Persister, classifier *categorize.Classifier, opts Options) *Aggregator {
	if classifier == nil {
		classifier = categorize.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		registry:   registry,
		store:      st,
		writer:     writer,
		classifier: classifier,
		policy:     opts.Policy.WithDefaults(),
		breaking:   opts.Breaking.withDefaults(),
		logger:     opts.Logger.With("component", "aggregator"),
		now:        opts.Now,
	}
}

// GetHeadlines returns one page of headlines for category ("" for all).
// A page with at least one row scraped within the fresh window is served
// from the store; anything else triggers a walk of the source chain.
func (a *Aggregator) GetHeadlines(ctx context.Context, category news.Category, page, pageSize int) (news.Page, error) {
	page, pageSize = clampPage(page, pageSize)
	now := a.now()
	filter := store.Filter{Category: category, PublishedAfter: a.policy.RecencyCutoff(now)}

	rows, err := a.store.FindMany(ctx, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		a.logger.Warn("cache read failed", "category", category, "error", err)
		rows = nil
	}

	decision := a.policy.Decide(rows, now, false)
	metrics.CacheDecisions.WithLabelValues(decision.String()).Inc()

	if decision == freshness.FreshHit {
		result := a.servePage(ctx, filter, rows, page, pageSize)
		a.logger.Info("headlines served", "category", category, "page", page, "decision", decision,
			"articles", len(result.Articles))
		return result, nil
	}

	// Cache hits never reach the providers, breaking searches included.
	result := a.withBreaking(ctx, category, page, a.walkShared(ctx, category, page, pageSize))
	a.logger.Info("headlines served", "category", category, "page", page, "decision", decision,
		"articles", len(result.Articles))
	return result, nil
}

// Refresh re-fetches a listing. Without force it behaves like
// GetHeadlines. With force, aged rows are purged first and the cache
// short-circuit is skipped.
func (a *Aggregator) Refresh(ctx context.Context, category news.Category, page, pageSize int, force bool) (news.Page, error) {
	if !force {
		return a.GetHeadlines(ctx, category, page, pageSize)
	}
	page, pageSize = clampPage(page, pageSize)
	metrics.CacheDecisions.WithLabelValues(freshness.ForceRefresh.String()).Inc()

	if _, err := a.Purge(ctx); err != nil {
		a.logger.Warn("purge before refresh failed", "error", err)
	}

	result := a.walk(ctx, category, page, pageSize)
	a.logger.Info("headlines refreshed", "category", category, "page", page, "articles", len(result.Articles))
	return a.withBreaking(ctx, category, page, result), nil
}

// Purge deletes rows published before the retention window or scraped
// before the scrape TTL. Pinned rows are kept.
func (a *Aggregator) Purge(ctx context.Context) (int64, error) {
	publishedBefore, scrapedBefore := a.policy.PurgeCutoffs(a.now())
	n, err := a.store.DeleteMany(ctx, store.PurgeFilter{
		PublishedBefore: publishedBefore,
		ScrapedBefore:   scrapedBefore,
	})
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	a.logger.Info("purged aged articles", "deleted", n)
	return n, nil
}

func (a *Aggregator) servePage(ctx context.Context, filter store.Filter, rows []news.Article, page, pageSize int) news.Page {
	total, err := a.store.Count(ctx, filter)
	if err != nil {
		a.logger.Warn("cache count failed", "error", err)
		total = (page-1)*pageSize + len(rows)
	}
	return news.Page{
		Articles: rows,
		Pagination: news.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    &total,
			HasMore:  page*pageSize < total,
		},
	}
}

// walkShared collapses identical concurrent misses into one walk. The
// walk runs detached from the first caller's cancellation; every source
// call carries its own timeout.
func (a *Aggregator) walkShared(ctx context.Context, category news.Category, page, pageSize int) news.Page {
	key := fmt.Sprintf("%s|%d|%d", category, page, pageSize)
	v, _, shared := a.inflight.Do(key, func() (any, error) {
		return a.walk(context.WithoutCancel(ctx), category, page, pageSize), nil
	})
	if shared {
		a.logger.Debug("joined in-flight walk", "key", key)
	}
	return clonePage(v.(news.Page))
}

// walk asks each source in priority order for the first page*pageSize
// articles and stops once that many unique articles inside the retention
// window are in hand. Results
// are merged with the cached window, sorted and paginated.
func (a *Aggregator) walk(ctx context.Context, category news.Category, page, pageSize int) news.Page {
	now := a.now()
	cutoff := a.policy.RecencyCutoff(now)
	target := min(page*pageSize, maxFetch)

	fetched := newMerger()
	for _, src := range a.registry.Sources() {
		if ctx.Err() != nil {
			break
		}
		got := src.FetchHeadlines(ctx, category, 1, target)
		returned := len(got)
		got = recent(got, cutoff)
		added := fetched.add(got...)
		a.logger.Debug("source walked", "source", src.Name(), "category", category,
			"returned", returned, "recent", len(got), "new", added)
		if fetched.len() >= target {
			break
		}
	}

	fresh := fetched.items
	a.classifier.Apply(fresh)
	if len(fresh) > 0 && a.writer != nil {
		a.writer.Enqueue("headlines:"+string(category), fresh)
	}

	merged := newMerger()
	merged.add(fresh...)
	cached, err := a.store.FindMany(ctx, store.Filter{Category: category, PublishedAfter: cutoff}, 0, target)
	if err != nil {
		a.logger.Warn("cache merge read failed", "category", category, "error", err)
	}
	merged.add(cached...)

	all := merged.items
	if len(all) == 0 {
		a.logger.Warn("all sources exhausted", "category", category, "page", page)
		return news.EmptyPage(page, pageSize)
	}
	sortByPublished(all)

	total := len(all)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	articles := append([]news.Article{}, all[start:end]...)
	return news.Page{
		Articles: articles,
		Pagination: news.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    &total,
			HasMore:  end < total,
		},
	}
}

// recent keeps articles published after cutoff.
func recent(articles []news.Article, cutoff time.Time) []news.Article {
	out := make([]news.Article, 0, len(articles))
	for _, a := range articles {
		if a.PublishedAt.After(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// clonePage copies the mutable parts of a page shared between callers.
func clonePage(p news.Page) news.Page {
	p.Articles = append([]news.Article{}, p.Articles...)
	if p.Pagination.Total != nil {
		total := *p.Pagination.Total
		p.Pagination.Total = &total
	}
	return p
}
