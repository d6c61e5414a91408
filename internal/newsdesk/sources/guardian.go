package sources

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

const (
	guardianBase    = "https://content.guardianapis.com"
	guardianPreview = 1000
)

// guardianSections maps canonical categories onto Guardian section ids.
var guardianSections = map[news.Category]string{
	news.Technology:    "technology",
	news.Politics:      "politics",
	news.Business:      "business",
	news.Health:        "society",
	news.Sports:        "sport",
	news.Entertainment: "culture",
	news.Science:       "science",
	news.World:         "world",
	news.Environment:   "environment",
	news.Economy:       "business",
}

// guardianCategories maps result section ids back to canonical categories.
var guardianCategories = map[string]news.Category{
	"technology":         news.Technology,
	"politics":           news.Politics,
	"us-news":            news.Politics,
	"uk-news":            news.Politics,
	"business":           news.Business,
	"money":              news.Economy,
	"society":            news.Health,
	"healthcare-network": news.Health,
	"sport":              news.Sports,
	"football":           news.Sports,
	"culture":            news.Entertainment,
	"film":               news.Entertainment,
	"music":              news.Entertainment,
	"tv-and-radio":       news.Entertainment,
	"books":              news.Entertainment,
	"stage":              news.Entertainment,
	"games":              news.Entertainment,
	"science":            news.Science,
	"world":              news.World,
	"australia-news":     news.World,
	"environment":        news.Environment,
}

// Guardian is the curated source (content.guardianapis.com).
type Guardian struct {
	apiKey string
	base   string
	req    requester
	now    func() time.Time
}

// NewGuardian creates the curated source.
func NewGuardian(apiKey string, opts Options) *Guardian {
	base := opts.BaseURL
	if base == "" {
		base = guardianBase
	}
	return &Guardian{apiKey: apiKey, base: base, req: newRequester("Guardian", opts), now: time.Now}
}

func (g *Guardian) Name() string { return "The Guardian" }

func (g *Guardian) FetchHeadlines(ctx context.Context, category news.Category, page, pageSize int) []news.Article {
	if g.apiKey == "" {
		return g.req.skipped("headlines", "missing api key")
	}
	params := g.params(page, pageSize)
	if section, ok := guardianSections[category]; ok {
		params.Set("section", section)
	}
	if category == news.Economy {
		params.Set("q", "economy")
	}
	return g.fetch(ctx, "headlines", params, category)
}

func (g *Guardian) Search(ctx context.Context, query string, page, pageSize int) []news.Article {
	if g.apiKey == "" {
		return g.req.skipped("search", "missing api key")
	}
	params := g.params(page, pageSize)
	params.Set("q", query)
	return g.fetch(ctx, "search", params, "")
}

func (g *Guardian) params(page, pageSize int) url.Values {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("show-fields", "trailText,bodyText,thumbnail,byline")
	params.Set("order-by", "newest")
	params.Set("page", strconv.Itoa(page))
	params.Set("page-size", strconv.Itoa(clampPageSize(pageSize, 50)))
	params.Set("api-key", g.apiKey)
	return params
}

type guardianResponse struct {
	Response struct {
		Status  string `json:"status"`
		Results []struct {
			SectionID          string `json:"sectionId"`
			SectionName        string `json:"sectionName"`
			WebPublicationDate string `json:"webPublicationDate"`
			WebTitle           string `json:"webTitle"`
			WebURL             string `json:"webUrl"`
			Fields             struct {
				TrailText string `json:"trailText"`
				BodyText  string `json:"bodyText"`
				Thumbnail string `json:"thumbnail"`
				Byline    string `json:"byline"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

func (g *Guardian) fetch(ctx context.Context, op string, params url.Values, requested news.Category) []news.Article {
	start := time.Now()
	var resp guardianResponse
	if err := g.req.getJSON(ctx, g.base+"/search", params, nil, &resp); err != nil {
		return g.req.observe(op, start, nil, err)
	}

	items := make([]news.Article, 0, len(resp.Response.Results))
	for _, it := range resp.Response.Results {
		category := requested
		if category == "" {
			category = guardianCategory(it.SectionID, it.SectionName)
		}
		items = append(items, news.Article{
			Title:       it.WebTitle,
			Summary:     it.Fields.TrailText,
			Content:     clip(cleanText(it.Fields.BodyText), guardianPreview),
			URL:         it.WebURL,
			ImageURL:    it.Fields.Thumbnail,
			Source:      g.Name(),
			Author:      it.Fields.Byline,
			Category:    category,
			PublishedAt: parseTime(it.WebPublicationDate),
		})
	}
	return g.req.observe(op, start, normalizeAll(items, requested, g.now()), nil)
}

// guardianCategory resolves a result section. Unmapped sections keep the
// section name as a raw hint for the categorizer.
func guardianCategory(sectionID, sectionName string) news.Category {
	if c, ok := guardianCategories[sectionID]; ok {
		return c
	}
	return news.Category(sectionName)
}
