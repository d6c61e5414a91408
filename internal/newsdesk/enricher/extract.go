package enricher

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

const (
	minParagraphRunes   = 20
	boilerplateMaxRunes = 80
	maxContentRunes     = 20000
)

// bodySelectors are tried in order; the first one yielding a usable
// paragraph wins.
var bodySelectors = []string{
	"article p",
	"[itemprop='articleBody'] p",
	".article-body p",
	".article-content p",
	".story-body p",
	".entry-content p",
	".post-content p",
	"main p",
	"#content p",
	"p",
}

var boilerplate = regexp.MustCompile(`(?i)\b(subscribe|read more|sign up|newsletter|advertisement|cookies?|all rights reserved|click here|follow us|log in to)\b`)

var imageSelectors = []struct{ sel, attr string }{
	{"meta[property='og:image']", "content"},
	{"meta[name='twitter:image']", "content"},
	{"meta[name='twitter:image:src']", "content"},
	{"link[rel='image_src']", "href"},
	{"article img", "src"},
}

var dateSelectors = []struct{ sel, attr string }{
	{"meta[property='article:published_time']", "content"},
	{"meta[itemprop='datePublished']", "content"},
	{"meta[name='pubdate']", "content"},
	{"meta[name='publishdate']", "content"},
	{"meta[name='date']", "content"},
	{"time[datetime]", "datetime"},
}

var authorSelectors = []struct{ sel, attr string }{
	{"meta[name='author']", "content"},
	{"meta[property='article:author']", "content"},
	{"[itemprop='author'] [itemprop='name']", ""},
	{"[rel='author']", ""},
	{".byline", ""},
	{".author", ""},
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// extraction is what could be recovered from one rendered document.
type extraction struct {
	Content     string
	ImageURL    string
	Author      string
	PublishedAt *time.Time
}

// extract pulls the article body and metadata out of doc. The bool is
// false when no usable body text was found.
func extract(doc string, base *url.URL) (extraction, bool) {
	var out extraction
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return out, false
	}
	gq.Find("script, style, noscript, nav, footer, aside, form").Remove()

	out.ImageURL = firstImage(gq, base)
	out.PublishedAt = firstDate(gq)
	out.Author = firstAuthor(gq)

	for _, sel := range bodySelectors {
		if paras := paragraphs(gq.Find(sel)); len(paras) > 0 {
			out.Content = joinParagraphs(paras)
			return out, true
		}
	}

	if paras := readabilityParagraphs(doc, base); len(paras) > 0 {
		out.Content = joinParagraphs(paras)
		return out, true
	}
	return out, false
}

func paragraphs(sel *goquery.Selection) []string {
	var out []string
	seen := make(map[string]bool)
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := usable(s.Text()); text != "" && !seen[text] {
			seen[text] = true
			out = append(out, text)
		}
	})
	return out
}

// usable normalizes a paragraph and returns "" when it is too short or
// reads as page furniture.
func usable(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	n := utf8.RuneCountInString(text)
	if n < minParagraphRunes || (n < boilerplateMaxRunes && boilerplate.MatchString(text)) {
		return ""
	}
	return text
}

func readabilityParagraphs(doc string, base *url.URL) []string {
	article, err := readability.FromReader(strings.NewReader(doc), base)
	if err != nil {
		return nil
	}
	var sb strings.Builder
	if err := article.RenderText(&sb); err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if text := usable(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func joinParagraphs(paras []string) string {
	content := strings.Join(paras, "\n\n")
	if r := []rune(content); len(r) > maxContentRunes {
		content = string(r[:maxContentRunes])
	}
	return content
}

func firstImage(doc *goquery.Document, base *url.URL) string {
	for _, c := range imageSelectors {
		raw, ok := doc.Find(c.sel).First().Attr(c.attr)
		if !ok {
			continue
		}
		if abs := resolve(base, raw); abs != "" {
			return abs
		}
	}
	return ""
}

func firstDate(doc *goquery.Document) *time.Time {
	for _, c := range dateSelectors {
		raw, ok := doc.Find(c.sel).First().Attr(c.attr)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return &t
			}
		}
	}
	return nil
}

func firstAuthor(doc *goquery.Document) string {
	for _, c := range authorSelectors {
		s := doc.Find(c.sel).First()
		var raw string
		if c.attr != "" {
			raw, _ = s.Attr(c.attr)
		} else {
			raw = s.Text()
		}
		raw = strings.Join(strings.Fields(raw), " ")
		raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(raw, "By "), "by "))
		// article:author is often a profile link.
		if raw == "" || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			continue
		}
		return raw
	}
	return ""
}

// resolve makes raw absolute against base, accepting only http(s).
func resolve(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}
