// Package news defines the canonical article model shared by every
// ingestion component: the category enumeration, the Article record and
// the paged result returned to callers.
package news

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidInput marks caller mistakes (bad URL, empty query, unknown
// category). It is the only failure the pipeline reports synchronously.
var ErrInvalidInput = errors.New("invalid input")

// Category is a topic bucket shared with the UI filter controls.
type Category string

const (
	Technology    Category = "Technology"
	Politics      Category = "Politics"
	Business      Category = "Business"
	Health        Category = "Health"
	Sports        Category = "Sports"
	Entertainment Category = "Entertainment"
	Science       Category = "Science"
	World         Category = "World"
	Environment   Category = "Environment"
	Economy       Category = "Economy"
	General       Category = "General"
)

// AllCategories returns every category in canonical order.
func AllCategories() []Category {
	return []Category{Technology, Politics, Business, Health, Sports, Entertainment, Science, World, Environment, Economy, General}
}

// ParseCategory resolves a category name case-insensitively.
// An empty string or "all" yields ("", nil): no category filter.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return "", nil
	}
	for _, c := range AllCategories() {
		if strings.EqualFold(string(c), raw) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, raw)
}

// Article is the canonical unit of ingestion. URL is its identity.
type Article struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	Category    Category  `json:"category"`
	PublishedAt time.Time `json:"publishedAt"`
	ScrapedAt   time.Time `json:"scrapedAt"`
}

// Validate reports whether the article can enter the pipeline.
func (a Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidInput)
	}
	if !IsAbsoluteURL(a.URL) {
		return fmt.Errorf("%w: url %q is not absolute", ErrInvalidInput, a.URL)
	}
	return nil
}

// IsAbsoluteURL reports whether raw is an absolute http(s) URL with a host.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ClampPublished keeps publication times out of the future. A zero time
// is treated as "published at ingestion".
func ClampPublished(published, now time.Time) time.Time {
	if published.IsZero() || published.After(now) {
		return now
	}
	return published
}

// Pagination describes where a Page sits in the full result.
// Total is nil when the provider cannot report it (search).
type Pagination struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	Total    *int `json:"total,omitempty"`
	HasMore  bool `json:"hasMore"`
}

// Page is one page of articles.
type Page struct {
	Articles   []Article  `json:"articles"`
	Pagination Pagination `json:"pagination"`
}

// EmptyPage returns a renderable page with no articles.
func EmptyPage(page, pageSize int) Page {
	total := 0
	return Page{
		Articles:   []Article{},
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: &total},
	}
}
