package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

const (
	redditBase      = "https://www.reddit.com"
	selftextExcerpt = 500
	hnFrontPage     = "https://hnrss.org/frontpage"
)

// CommunityFeeds lists the community listings consulted per category.
type CommunityFeeds struct {
	Subreddits []string `yaml:"subreddits"`
	Feeds      []string `yaml:"feeds"`
}

// DefaultCommunityFeeds returns the built-in topic map.
func DefaultCommunityFeeds() map[news.Category]CommunityFeeds {
	return map[news.Category]CommunityFeeds{
		news.Technology:    {Subreddits: []string{"technology"}, Feeds: []string{hnFrontPage}},
		news.Politics:      {Subreddits: []string{"politics"}},
		news.Business:      {Subreddits: []string{"business"}},
		news.Health:        {Subreddits: []string{"health"}},
		news.Sports:        {Subreddits: []string{"sports"}},
		news.Entertainment: {Subreddits: []string{"entertainment", "movies"}},
		news.Science:       {Subreddits: []string{"science"}, Feeds: []string{hnFrontPage}},
		news.World:         {Subreddits: []string{"worldnews"}},
		news.Environment:   {Subreddits: []string{"environment"}},
		news.Economy:       {Subreddits: []string{"economics"}},
		news.General:       {Subreddits: []string{"news", "worldnews"}},
	}
}

// Community is the keyless last-resort source: Reddit listings and
// RSS/Atom feeds.
type Community struct {
	topics map[news.Category]CommunityFeeds
	base   string
	req    requester
	now    func() time.Time
}

// NewCommunity creates the community source. A nil topic map selects the
// built-in one.
func NewCommunity(topics map[news.Category]CommunityFeeds, opts Options) *Community {
	if len(topics) == 0 {
		topics = DefaultCommunityFeeds()
	}
	base := opts.BaseURL
	if base == "" {
		base = redditBase
	}
	return &Community{
		topics: topics,
		base:   strings.TrimRight(base, "/"),
		req:    newRequester("Community", opts),
		now:    time.Now,
	}
}

func (c *Community) Name() string { return "Community" }

// FetchHeadlines merges every listing mapped to category, newest first,
// and returns the requested page window of the merged list.
func (c *Community) FetchHeadlines(ctx context.Context, category news.Category, page, pageSize int) []news.Article {
	start := time.Now()
	if page < 1 {
		page = 1
	}
	pageSize = clampPageSize(pageSize, 100)
	limit := min(page*pageSize, 100)

	topic, ok := c.topics[category]
	if !ok {
		topic = c.topics[news.General]
	}

	var (
		items []news.Article
		errs  []error
	)
	for _, sub := range topic.Subreddits {
		params := url.Values{}
		params.Set("t", "day")
		params.Set("limit", strconv.Itoa(limit))
		got, err := c.reddit(ctx, fmt.Sprintf("%s/r/%s/top.json", c.base, sub), params)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, got...)
	}
	for _, feed := range topic.Feeds {
		got, err := c.feed(ctx, feed)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, got...)
	}

	if len(items) == 0 && len(errs) > 0 {
		return c.req.observe("headlines", start, nil, errors.Join(errs...))
	}
	for _, err := range errs {
		c.req.logger.Warn("community listing failed", "category", category, "error", err)
	}

	articles := normalizeAll(items, category, c.now())
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	return c.req.observe("headlines", start, window(articles, page, pageSize), nil)
}

// Search runs a Reddit-wide search over the past week.
func (c *Community) Search(ctx context.Context, query string, page, pageSize int) []news.Article {
	start := time.Now()
	if page < 1 {
		page = 1
	}
	pageSize = clampPageSize(pageSize, 100)

	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "new")
	params.Set("t", "week")
	params.Set("limit", strconv.Itoa(min(page*pageSize, 100)))
	items, err := c.reddit(ctx, c.base+"/search.json", params)
	if err != nil {
		return c.req.observe("search", start, nil, err)
	}
	return c.req.observe("search", start, window(normalizeAll(items, "", c.now()), page, pageSize), nil)
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	Selftext   string  `json:"selftext"`
	Thumbnail  string  `json:"thumbnail"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit_name_prefixed"`
	CreatedUTC float64 `json:"created_utc"`
	IsSelf     bool    `json:"is_self"`
	Stickied   bool    `json:"stickied"`
	Over18     bool    `json:"over_18"`
}

func (c *Community) reddit(ctx context.Context, endpoint string, params url.Values) ([]news.Article, error) {
	var listing redditListing
	if err := c.req.getJSON(ctx, endpoint, params, nil, &listing); err != nil {
		return nil, err
	}

	out := make([]news.Article, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		if p.Stickied || p.Over18 {
			continue
		}
		link := p.URL
		if p.IsSelf || !news.IsAbsoluteURL(link) {
			link = "https://www.reddit.com" + p.Permalink
		}
		var published time.Time
		if p.CreatedUTC > 0 {
			published = time.Unix(int64(p.CreatedUTC), 0).UTC()
		}
		source := "reddit.com"
		if p.Subreddit != "" {
			source = "reddit.com/" + p.Subreddit
		}
		out = append(out, news.Article{
			Title:       p.Title,
			Content:     clip(cleanText(p.Selftext), selftextExcerpt),
			URL:         link,
			ImageURL:    p.Thumbnail,
			Source:      source,
			Author:      p.Author,
			PublishedAt: published,
		})
	}
	return out, nil
}

func (c *Community) feed(ctx context.Context, link string) ([]news.Article, error) {
	body, err := c.req.get(ctx, link, nil, nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", link, err)
	}

	source := feed.Title
	if source == "" {
		source = c.Name()
	}
	out := make([]news.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := news.Article{
			Title:    item.Title,
			Summary:  item.Description,
			Content:  item.Content,
			URL:      item.Link,
			ImageURL: feedImage(item),
			Source:   source,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.PublishedAt = *item.UpdatedParsed
		}
		if item.Author != nil {
			a.Author = item.Author.Name
		}
		out = append(out, a)
	}
	return out, nil
}

// feedImage picks the item image, then media:thumbnail, then an image
// enclosure.
func feedImage(item *gofeed.Item) string {
	if item.Image != nil && news.IsAbsoluteURL(item.Image.URL) {
		return item.Image.URL
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, thumb := range media["thumbnail"] {
			if u := thumb.Attrs["url"]; news.IsAbsoluteURL(u) {
				return u
			}
		}
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && news.IsAbsoluteURL(enc.URL) {
			return enc.URL
		}
	}
	return ""
}

func window(articles []news.Article, page, pageSize int) []news.Article {
	start := (page - 1) * pageSize
	if start >= len(articles) {
		return nil
	}
	end := min(start+pageSize, len(articles))
	return articles[start:end]
}
