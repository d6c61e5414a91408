// Package categorize assigns a topic category to articles that arrive
// without one, using an ordered keyword table.
package categorize

import (
	"strings"
	"unicode"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

// Rule binds a category to the keywords that select it.
type Rule struct {
	Category news.Category `yaml:"category"`
	Keywords []string      `yaml:"keywords"`
}

// DefaultRules returns the built-in keyword table. Order is the tie-break
// priority: the first rule with any matching keyword wins.
func DefaultRules() []Rule {
	return []Rule{
		{news.Technology, []string{
			"technology", "tech", "software", "hardware", "ai", "artificial intelligence",
			"machine learning", "startup", "smartphone", "iphone", "android", "google",
			"apple", "microsoft", "cybersecurity", "hacker", "chip", "semiconductor",
			"app", "internet", "robot", "computing", "cloud",
		}},
		{news.Politics, []string{
			"politics", "political", "election", "elections", "vote", "voters", "senate",
			"congress", "parliament", "president", "minister", "government", "campaign",
			"democrat", "republican", "legislation", "lawmakers", "white house",
		}},
		{news.Business, []string{
			"business", "company", "companies", "earnings", "revenue", "profit", "stock",
			"stocks", "shares", "market", "markets", "investor", "investors", "merger",
			"acquisition", "ceo", "ipo", "wall street", "startup funding",
		}},
		{news.Health, []string{
			"health", "medical", "medicine", "hospital", "disease", "virus", "vaccine",
			"covid", "cancer", "patients", "doctor", "doctors", "mental health", "fda",
			"outbreak", "drug", "nutrition",
		}},
		{news.Sports, []string{
			"sports", "sport", "football", "soccer", "basketball", "baseball", "tennis",
			"golf", "olympics", "nba", "nfl", "mlb", "nhl", "fifa", "championship",
			"tournament", "match", "coach", "league", "world cup",
		}},
		{news.Entertainment, []string{
			"entertainment", "movie", "movies", "film", "music", "celebrity", "actor",
			"actress", "hollywood", "netflix", "album", "concert", "tv show", "box office",
			"streaming", "oscars", "grammy",
		}},
		{news.Science, []string{
			"science", "scientists", "research", "study", "space", "nasa", "astronomy",
			"physics", "biology", "chemistry", "discovery", "planet", "telescope",
			"genome", "fossil",
		}},
		{news.World, []string{
			"world", "international", "global", "war", "conflict", "united nations",
			"embassy", "foreign", "diplomat", "diplomatic", "refugees", "ukraine",
			"middle east", "europe", "asia", "africa", "summit",
		}},
		{news.Environment, []string{
			"environment", "environmental", "climate", "climate change", "global warming",
			"emissions", "carbon", "pollution", "renewable", "wildfire", "drought",
			"biodiversity", "conservation", "sustainability",
		}},
		{news.Economy, []string{
			"economy", "economic", "inflation", "recession", "gdp", "interest rates",
			"federal reserve", "unemployment", "jobs report", "central bank", "tariffs",
			"trade deficit", "consumer prices",
		}},
	}
}

// hintAliases maps provider vocabulary onto canonical categories.
var hintAliases = map[string]news.Category{
	"tech":          news.Technology,
	"sci-tech":      news.Technology,
	"sport":         news.Sports,
	"world news":    news.World,
	"worldnews":     news.World,
	"nation":        news.Politics,
	"us-news":       news.World,
	"money":         news.Economy,
	"economics":     news.Economy,
	"culture":       news.Entertainment,
	"film":          news.Entertainment,
	"music":         news.Entertainment,
	"environmental": news.Environment,
	"climate":       news.Environment,
}

type compiledRule struct {
	category news.Category
	words    map[string]struct{}
	phrases  []string
}

// Classifier evaluates the keyword table.
type Classifier struct {
	rules   []compiledRule
	buckets map[news.Category]struct{}
}

// New builds a classifier from rules. Empty or nil rules fall back to
// DefaultRules.
func New(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	c := &Classifier{buckets: make(map[news.Category]struct{}, len(rules))}
	for _, r := range rules {
		cr := compiledRule{category: r.Category, words: map[string]struct{}{}}
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.ContainsAny(kw, " -") {
				cr.phrases = append(cr.phrases, kw)
			} else {
				cr.words[kw] = struct{}{}
			}
		}
		c.rules = append(c.rules, cr)
		c.buckets[r.Category] = struct{}{}
	}
	return c
}

// Classify returns the category for an article. A hint naming a keyword
// bucket is trusted as-is; anything else (including General) falls
// through to keyword scanning. The result is never empty.
func (c *Classifier) Classify(title, content, hint string) news.Category {
	if cat, ok := c.resolveHint(hint); ok {
		return cat
	}

	text := strings.ToLower(title + " " + content)
	tokens := tokenize(text)
	for _, r := range c.rules {
		if r.matches(text, tokens) {
			return r.category
		}
	}
	return news.General
}

// Apply fills in the category of every article in place.
func (c *Classifier) Apply(articles []news.Article) {
	for i := range articles {
		a := &articles[i]
		a.Category = c.Classify(a.Title, a.Summary+" "+a.Content, string(a.Category))
	}
}

func (c *Classifier) resolveHint(hint string) (news.Category, bool) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return "", false
	}
	cat, ok := hintAliases[hint]
	if !ok {
		parsed, err := news.ParseCategory(hint)
		if err != nil || parsed == "" {
			return "", false
		}
		cat = parsed
	}
	if _, known := c.buckets[cat]; !known {
		return "", false
	}
	return cat, true
}

func (r compiledRule) matches(text string, tokens map[string]struct{}) bool {
	for _, p := range r.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	for w := range r.words {
		if _, ok := tokens[w]; ok {
			return true
		}
	}
	return false
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[word] = struct{}{}
	}
	return out
}
