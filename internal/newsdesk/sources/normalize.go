package sources

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

const (
	maxContentRunes = 2000
	summaryRunes    = 200
)

var (
	textPolicy = bluemonday.StrictPolicy()
	// NewsAPI appends "[+1234 chars]" to truncated content.
	truncationMarker = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)
)

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

// normalize fills the canonical fields of a provider article. It returns
// false when the article cannot enter the pipeline.
func normalize(a news.Article, requested news.Category, now time.Time) (news.Article, bool) {
	a.Title = cleanText(a.Title)
	a.Summary = cleanText(a.Summary)
	a.Content = clip(cleanText(truncationMarker.ReplaceAllString(a.Content, "")), maxContentRunes)
	a.Author = cleanText(a.Author)
	a.Source = strings.TrimSpace(a.Source)
	a.URL = strings.TrimSpace(a.URL)

	if a.Summary == "" && a.Content != "" {
		a.Summary = clip(a.Content, summaryRunes)
	}
	if a.ImageURL != "" && !news.IsAbsoluteURL(a.ImageURL) {
		a.ImageURL = ""
	}
	if a.Category == "" {
		a.Category = requested
	}
	a.PublishedAt = news.ClampPublished(a.PublishedAt, now)
	a.ScrapedAt = now

	if err := a.Validate(); err != nil {
		return a, false
	}
	return a, true
}

func normalizeAll(items []news.Article, requested news.Category, now time.Time) []news.Article {
	out := make([]news.Article, 0, len(items))
	for _, it := range items {
		if a, ok := normalize(it, requested, now); ok {
			out = append(out, a)
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// parseTime accepts the timestamp formats the providers emit. Unparseable
// input yields the zero time, which normalize clamps to ingestion time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
