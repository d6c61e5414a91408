package aggregator

import (
	"sort"
	"strings"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

// titlePrefixRunes is how much of a lowercased title identifies a story.
const titlePrefixRunes = 50

// merger accumulates articles, dropping any whose URL or title prefix was
// already seen. The first occurrence wins, so callers add in priority order.
type merger struct {
	urls   map[string]struct{}
	titles map[string]struct{}
	items  []news.Article
}

func newMerger() *merger {
	return &merger{urls: make(map[string]struct{}), titles: make(map[string]struct{})}
}

// add merges articles and returns how many were new.
func (m *merger) add(articles ...news.Article) int {
	added := 0
	for _, a := range articles {
		if _, dup := m.urls[a.URL]; dup {
			continue
		}
		key := titleKey(a.Title)
		if key != "" {
			if _, dup := m.titles[key]; dup {
				continue
			}
			m.titles[key] = struct{}{}
		}
		m.urls[a.URL] = struct{}{}
		m.items = append(m.items, a)
		added++
	}
	return added
}

func (m *merger) len() int { return len(m.items) }

func titleKey(title string) string {
	r := []rune(strings.ToLower(title))
	if len(r) > titlePrefixRunes {
		r = r[:titlePrefixRunes]
	}
	return string(r)
}

// Dedupe removes repeated stories from articles, keeping first occurrences
// in their original order. Applying it twice changes nothing.
func Dedupe(articles []news.Article) []news.Article {
	m := newMerger()
	m.add(articles...)
	if m.items == nil {
		return []news.Article{}
	}
	return m.items
}

// sortByPublished orders newest first; equal timestamps keep their
// relative (priority) order.
func sortByPublished(articles []news.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
