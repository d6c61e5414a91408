package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

const newsAPIBase = "https://newsapi.org/v2"

// broadQuery backs the uncategorized listing, which NewsAPI only serves
// through /everything.
const broadQuery = "news OR breaking OR world OR politics OR business OR technology"

// newsAPICategories are the categories /top-headlines understands.
var newsAPICategories = map[news.Category]string{
	news.Technology:    "technology",
	news.Business:      "business",
	news.Health:        "health",
	news.Sports:        "sports",
	news.Entertainment: "entertainment",
	news.Science:       "science",
	news.General:       "general",
}

// categoryQueries stand in for categories a provider has no listing for.
var categoryQueries = map[news.Category]string{
	news.Politics:    "politics OR election OR government",
	news.World:       "world OR international",
	news.Environment: "climate OR environment",
	news.Economy:     "economy OR inflation OR markets",
}

// NewsAPI is the primary headline source (newsapi.org).
type NewsAPI struct {
	apiKey  string
	country string
	base    string
	req     requester
	now     func() time.Time
}

// NewNewsAPI creates the primary source. country scopes top headlines.
func NewNewsAPI(apiKey, country string, opts Options) *NewsAPI {
	base := opts.BaseURL
	if base == "" {
		base = newsAPIBase
	}
	if country == "" {
		country = "us"
	}
	return &NewsAPI{
		apiKey:  apiKey,
		country: country,
		base:    base,
		req:     newRequester("NewsAPI", opts),
		now:     time.Now,
	}
}

func (n *NewsAPI) Name() string { return "NewsAPI" }

// FetchHeadlines serves native categories from /top-headlines, other
// categories from a keyword search, and no category from a relevance
// query limited to the last 24 hours.
func (n *NewsAPI) FetchHeadlines(ctx context.Context, category news.Category, page, pageSize int) []news.Article {
	if n.apiKey == "" {
		return n.req.skipped("headlines", "missing api key")
	}

	params := pageParams(page, clampPageSize(pageSize, 100))
	path := "/everything"
	switch native, ok := newsAPICategories[category]; {
	case category == "":
		params.Set("q", broadQuery)
		params.Set("from", n.now().Add(-24*time.Hour).UTC().Format(time.RFC3339))
		params.Set("sortBy", "relevancy")
		params.Set("language", "en")
	case ok:
		path = "/top-headlines"
		params.Set("country", n.country)
		params.Set("category", native)
	default:
		params.Set("q", categoryQueries[category])
		params.Set("sortBy", "publishedAt")
		params.Set("language", "en")
	}
	return n.fetch(ctx, "headlines", path, params, category)
}

// Search queries /everything sorted by recency.
func (n *NewsAPI) Search(ctx context.Context, query string, page, pageSize int) []news.Article {
	if n.apiKey == "" {
		return n.req.skipped("search", "missing api key")
	}
	params := pageParams(page, clampPageSize(pageSize, 100))
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	return n.fetch(ctx, "search", "/everything", params, "")
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func (n *NewsAPI) fetch(ctx context.Context, op, path string, params url.Values, category news.Category) []news.Article {
	start := time.Now()
	header := http.Header{"X-Api-Key": []string{n.apiKey}}

	var resp newsAPIResponse
	err := n.req.getJSON(ctx, n.base+path, params, header, &resp)
	if err == nil && resp.Status != "ok" {
		err = fmt.Errorf("newsapi status %q: %s %s", resp.Status, resp.Code, resp.Message)
	}
	if err != nil {
		return n.req.observe(op, start, nil, err)
	}

	items := make([]news.Article, 0, len(resp.Articles))
	for _, it := range resp.Articles {
		if it.Title == "[Removed]" || it.URL == "https://removed.com" {
			continue
		}
		source := it.Source.Name
		if source == "" {
			source = n.Name()
		}
		items = append(items, news.Article{
			Title:       it.Title,
			Summary:     it.Description,
			Content:     it.Content,
			URL:         it.URL,
			ImageURL:    it.URLToImage,
			Source:      source,
			Author:      it.Author,
			PublishedAt: parseTime(it.PublishedAt),
		})
	}
	return n.req.observe(op, start, normalizeAll(items, category, n.now()), nil)
}

func pageParams(page, pageSize int) url.Values {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return params
}
