package aggregator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

// BreakingConfig controls the breaking-news block prepended to the
// uncategorized first page.
type BreakingConfig struct {
	Disabled   bool          `yaml:"disabled" env:"NEWSDESK_BREAKING_DISABLED"`
	Keywords   []string      `yaml:"keywords" env:"NEWSDESK_BREAKING_KEYWORDS"`
	Limit      int           `yaml:"limit"`
	PerKeyword int           `yaml:"per_keyword"`
	Window     time.Duration `yaml:"window"`
}

// DefaultBreakingKeywords are the urgency markers searched for.
var DefaultBreakingKeywords = []string{"breaking", "urgent", "developing", "live", "alert"}

func (c BreakingConfig) withDefaults() BreakingConfig {
	if len(c.Keywords) == 0 {
		c.Keywords = DefaultBreakingKeywords
	}
	if c.Limit <= 0 || c.Limit > 10 {
		c.Limit = 10
	}
	if c.PerKeyword <= 0 {
		c.PerKeyword = 5
	}
	if c.Window <= 0 {
		c.Window = 24 * time.Hour
	}
	return c
}

// withBreaking prepends the breaking block to page 1 of the general
// listing. Regular articles repeating a breaking story are dropped. The
// block rides on top of the page, so page 1 may carry up to Limit more
// than pageSize articles; Total and HasMore describe the regular listing
// only.
func (a *Aggregator) withBreaking(ctx context.Context, category news.Category, page int, result news.Page) news.Page {
	if a.breaking.Disabled || page != 1 || (category != "" && category != news.General) {
		return result
	}
	hits := a.breakingNews(ctx)
	if len(hits) == 0 {
		return result
	}

	m := newMerger()
	m.add(hits...)
	m.add(result.Articles...)
	result.Articles = m.items
	return result
}

// breakingNews searches every keyword concurrently on the primary
// searcher. Results are merged in keyword order, not completion order.
func (a *Aggregator) breakingNews(ctx context.Context) []news.Article {
	searchers := a.registry.Searchers()
	if len(searchers) == 0 {
		return nil
	}
	primary := searchers[0]

	results := make([][]news.Article, len(a.breaking.Keywords))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range a.breaking.Keywords {
		g.Go(func() error {
			results[i] = primary.Search(gctx, kw, 1, a.breaking.PerKeyword)
			return nil
		})
	}
	_ = g.Wait()

	cutoff := a.now().Add(-a.breaking.Window)
	m := newMerger()
	for _, r := range results {
		m.add(recent(r, cutoff)...)
	}
	hits := m.items
	if len(hits) == 0 {
		return nil
	}
	a.classifier.Apply(hits)
	sortByPublished(hits)
	if len(hits) > a.breaking.Limit {
		hits = hits[:a.breaking.Limit]
	}
	if a.writer != nil {
		a.writer.Enqueue("breaking", hits)
	}
	return hits
}
