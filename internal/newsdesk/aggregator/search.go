package aggregator

import (
	"context"
	"fmt"
	"strings"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/store"
)

// Search runs a free-text query. There is no cache short-circuit: the
// searchers are tried in priority order until one yields an article
// inside the retention window. Only when all come back empty is the
// store searched instead.
func (a *Aggregator) Search(ctx context.Context, query string, page, pageSize int) (news.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return news.Page{}, fmt.Errorf("%w: search query is empty", news.ErrInvalidInput)
	}
	page, pageSize = clampPage(page, pageSize)
	cutoff := a.policy.RecencyCutoff(a.now())

	for _, s := range a.registry.Searchers() {
		raw := s.Search(ctx, query, page, pageSize)
		hits := Dedupe(recent(raw, cutoff))
		if len(hits) == 0 {
			continue
		}
		a.classifier.Apply(hits)
		sortByPublished(hits)
		if a.writer != nil {
			a.writer.Enqueue("search", hits)
		}
		a.logger.Info("search served", "query", query, "source", s.Name(), "articles", len(hits))
		return news.Page{
			Articles: hits,
			Pagination: news.Pagination{
				Page:     page,
				PageSize: pageSize,
				HasMore:  len(raw) >= pageSize,
			},
		}, nil
	}

	return a.searchStore(ctx, query, page, pageSize, store.Filter{Search: query, PublishedAfter: cutoff}), nil
}

func (a *Aggregator) searchStore(ctx context.Context, query string, page, pageSize int, filter store.Filter) news.Page {
	rows, err := a.store.FindMany(ctx, filter, (page-1)*pageSize, pageSize)
	if err != nil || len(rows) == 0 {
		if err != nil {
			a.logger.Warn("stored search failed", "query", query, "error", err)
		}
		return news.EmptyPage(page, pageSize)
	}
	a.logger.Info("search served from store", "query", query, "articles", len(rows))
	return a.servePage(ctx, filter, rows, page, pageSize)
}
