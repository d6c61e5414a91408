package sources

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

const gnewsBase = "https://gnews.io/api/v4"

var gnewsTopics = map[news.Category]string{
	news.Technology:    "technology",
	news.Politics:      "nation",
	news.Business:      "business",
	news.Health:        "health",
	news.Sports:        "sports",
	news.Entertainment: "entertainment",
	news.Science:       "science",
	news.World:         "world",
	news.Environment:   "science",
	news.Economy:       "business",
	news.General:       "general",
}

// GNews is the secondary headline source (gnews.io).
type GNews struct {
	apiKey string
	lang   string
	base   string
	req    requester
	now    func() time.Time
}

// NewGNews creates the secondary source.
func NewGNews(apiKey, lang string, opts Options) *GNews {
	base := opts.BaseURL
	if base == "" {
		base = gnewsBase
	}
	if lang == "" {
		lang = "en"
	}
	return &GNews{apiKey: apiKey, lang: lang, base: base, req: newRequester("GNews", opts), now: time.Now}
}

func (g *GNews) Name() string { return "GNews" }

func (g *GNews) FetchHeadlines(ctx context.Context, category news.Category, page, pageSize int) []news.Article {
	if g.apiKey == "" {
		return g.req.skipped("headlines", "missing api key")
	}
	params := g.params(page, pageSize)
	if topic, ok := gnewsTopics[category]; ok {
		params.Set("category", topic)
	} else {
		params.Set("category", "general")
	}
	return g.fetch(ctx, "headlines", "/top-headlines", params, category)
}

func (g *GNews) Search(ctx context.Context, query string, page, pageSize int) []news.Article {
	if g.apiKey == "" {
		return g.req.skipped("search", "missing api key")
	}
	params := g.params(page, pageSize)
	params.Set("q", query)
	params.Set("sortby", "publishedAt")
	return g.fetch(ctx, "search", "/search", params, "")
}

func (g *GNews) params(page, pageSize int) url.Values {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("lang", g.lang)
	params.Set("max", strconv.Itoa(clampPageSize(pageSize, 100)))
	params.Set("page", strconv.Itoa(page))
	params.Set("apikey", g.apiKey)
	return params
}

type gnewsResponse struct {
	TotalArticles int `json:"totalArticles"`
	Articles      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (g *GNews) fetch(ctx context.Context, op, path string, params url.Values, category news.Category) []news.Article {
	start := time.Now()
	var resp gnewsResponse
	if err := g.req.getJSON(ctx, g.base+path, params, nil, &resp); err != nil {
		return g.req.observe(op, start, nil, err)
	}

	items := make([]news.Article, 0, len(resp.Articles))
	for _, it := range resp.Articles {
		source := it.Source.Name
		if source == "" {
			source = g.Name()
		}
		items = append(items, news.Article{
			Title:       it.Title,
			Summary:     it.Description,
			Content:     it.Content,
			URL:         it.URL,
			ImageURL:    it.Image,
			Source:      source,
			PublishedAt: parseTime(it.PublishedAt),
		})
	}
	return g.req.observe(op, start, normalizeAll(items, category, g.now()), nil)
}
