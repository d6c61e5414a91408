// Package freshness decides when stored articles can be served without
// refetching and when they age out of the store.
package freshness

import (
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

// Default thresholds.
const (
	DefaultFreshFor  = time.Hour
	DefaultRetention = 48 * time.Hour
	DefaultScrapeTTL = 24 * time.Hour
)

// Decision is the outcome of evaluating cached rows.
type Decision int

const (
	// FreshHit serves the cache without any network call.
	FreshHit Decision = iota
	// Refetch walks the sources and merges with the cache.
	Refetch
	// ForceRefresh purges aged rows and walks the sources, ignoring the cache.
	ForceRefresh
)

func (d Decision) String() string {
	switch d {
	case FreshHit:
		return "fresh_hit"
	case Refetch:
		return "refetch"
	case ForceRefresh:
		return "force_refresh"
	default:
		return "unknown"
	}
}

// Policy holds the freshness and retention windows.
type Policy struct {
	FreshFor  time.Duration `yaml:"fresh_for" env:"NEWSDESK_FRESH_FOR"`
	Retention time.Duration `yaml:"retention" env:"NEWSDESK_RETENTION"`
	ScrapeTTL time.Duration `yaml:"scrape_ttl" env:"NEWSDESK_SCRAPE_TTL"`
}

// DefaultPolicy returns the 1h / 48h / 24h policy.
func DefaultPolicy() Policy {
	return Policy{FreshFor: DefaultFreshFor, Retention: DefaultRetention, ScrapeTTL: DefaultScrapeTTL}
}

// WithDefaults replaces non-positive windows with their defaults.
func (p Policy) WithDefaults() Policy {
	if p.FreshFor <= 0 {
		p.FreshFor = DefaultFreshFor
	}
	if p.Retention <= 0 {
		p.Retention = DefaultRetention
	}
	if p.ScrapeTTL <= 0 {
		p.ScrapeTTL = DefaultScrapeTTL
	}
	return p
}

// IsFresh reports whether at least one row was scraped within FreshFor.
func (p Policy) IsFresh(rows []news.Article, now time.Time) bool {
	cutoff := now.Add(-p.FreshFor)
	for _, a := range rows {
		if a.ScrapedAt.After(cutoff) {
			return true
		}
	}
	return false
}

// Decide evaluates the cached rows for one (category, page) query.
func (p Policy) Decide(rows []news.Article, now time.Time, force bool) Decision {
	if force {
		return ForceRefresh
	}
	if p.IsFresh(rows, now) {
		return FreshHit
	}
	return Refetch
}

// RecencyCutoff is the oldest publication time still served.
func (p Policy) RecencyCutoff(now time.Time) time.Time {
	return now.Add(-p.Retention)
}

// PurgeCutoffs returns the bounds used by a forced refresh: rows published
// before the first or scraped before the second are removed.
func (p Policy) PurgeCutoffs(now time.Time) (publishedBefore, scrapedBefore time.Time) {
	return now.Add(-p.Retention), now.Add(-p.ScrapeTTL)
}

// Expired reports whether a row falls outside either retention window.
func (p Policy) Expired(a news.Article, now time.Time) bool {
	publishedBefore, scrapedBefore := p.PurgeCutoffs(now)
	return a.PublishedAt.Before(publishedBefore) || a.ScrapedAt.Before(scrapedBefore)
}
