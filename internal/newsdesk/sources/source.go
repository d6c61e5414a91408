// Package sources defines the adapter interface and one implementation per
// news provider. Every adapter converts its provider payload into
// news.Article and degrades to an empty result on any failure.
package sources

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

// DefaultTimeout bounds every outbound adapter call.
const DefaultTimeout = 10 * time.Second

// Source is the interface that all news providers implement.
type Source interface {
	// Name returns the human-readable name of the source.
	Name() string

	// FetchHeadlines returns the provider's listing for category (empty
	// means any). It never fails: errors become an empty slice.
	FetchHeadlines(ctx context.Context, category news.Category, page, pageSize int) []news.Article
}

// Searcher is implemented by sources that support free-text queries.
type Searcher interface {
	Source
	Search(ctx context.Context, query string, page, pageSize int) []news.Article
}

// Options configures the HTTP behavior shared by all adapters.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
	UserAgent     string
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Registry holds sources in fallback priority order.
type Registry struct {
	sources []Source
}

// NewRegistry creates a registry with the given sources, highest priority first.
func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// Register appends a source at the lowest priority.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// Sources returns the fallback chain.
func (r *Registry) Sources() []Source {
	return r.sources
}

// Searchers returns the search-capable sources in priority order.
func (r *Registry) Searchers() []Searcher {
	var out []Searcher
	for _, s := range r.sources {
		if searcher, ok := s.(Searcher); ok {
			out = append(out, searcher)
		}
	}
	return out
}
