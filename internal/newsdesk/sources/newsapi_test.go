package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

func jsonHandler(t *testing.T, body any, seen func(*http.Request)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen(r)
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}
}

func TestNewsAPI_TopHeadlinesForNativeCategory(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(jsonHandler(t, map[string]any{
		"status": "ok",
		"articles": []map[string]any{
			{
				"source":      map[string]any{"name": "Wired"},
				"title":       "Chip <b>shortage</b> eases",
				"description": "Supply recovers",
				"url":         "https://wired.com/chips",
				"urlToImage":  "https://wired.com/chips.jpg",
				"publishedAt": "2024-05-01T10:00:00Z",
				"content":     "Manufacturers report relief [+1200 chars]",
			},
			{"title": "[Removed]", "url": "https://removed.com"},
		},
	}, func(r *http.Request) { got = r }))
	defer srv.Close()

	src := NewNewsAPI("secret", "", Options{BaseURL: srv.URL})
	articles := src.FetchHeadlines(context.Background(), news.Technology, 2, 5)

	require.NotNil(t, got)
	assert.Equal(t, "/top-headlines", got.URL.Path)
	assert.Equal(t, "technology", got.URL.Query().Get("category"))
	assert.Equal(t, "us", got.URL.Query().Get("country"))
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "5", got.URL.Query().Get("pageSize"))
	assert.Equal(t, "secret", got.Header.Get("X-Api-Key"))

	require.Len(t, articles, 1)
	a := articles[0]
	assert.Equal(t, "Chip shortage eases", a.Title)
	assert.Equal(t, "Manufacturers report relief", a.Content)
	assert.Equal(t, "Wired", a.Source)
	assert.Equal(t, news.Technology, a.Category)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), a.PublishedAt.UTC())
	assert.False(t, a.ScrapedAt.IsZero())
}

func TestNewsAPI_NonNativeCategoryUsesKeywordSearch(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(jsonHandler(t, map[string]any{"status": "ok"}, func(r *http.Request) { got = r }))
	defer srv.Close()

	src := NewNewsAPI("k", "us", Options{BaseURL: srv.URL})
	assert.Empty(t, src.FetchHeadlines(context.Background(), news.Politics, 1, 10))

	require.NotNil(t, got)
	assert.Equal(t, "/everything", got.URL.Path)
	assert.Contains(t, got.URL.Query().Get("q"), "politics")
	assert.Equal(t, "publishedAt", got.URL.Query().Get("sortBy"))
}

func TestNewsAPI_NoCategoryIsRecentRelevanceQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(jsonHandler(t, map[string]any{"status": "ok"}, func(r *http.Request) { got = r }))
	defer srv.Close()

	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	src := NewNewsAPI("k", "us", Options{BaseURL: srv.URL})
	src.now = func() time.Time { return now }
	src.FetchHeadlines(context.Background(), "", 1, 10)

	require.NotNil(t, got)
	assert.Equal(t, "/everything", got.URL.Path)
	assert.Equal(t, "relevancy", got.URL.Query().Get("sortBy"))
	assert.Equal(t, "2024-05-01T12:00:00Z", got.URL.Query().Get("from"))
}

func TestNewsAPI_MissingKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	src := NewNewsAPI("", "us", Options{BaseURL: srv.URL})
	assert.Empty(t, src.FetchHeadlines(context.Background(), news.Technology, 1, 10))
	assert.Empty(t, src.Search(context.Background(), "go", 1, 10))
	assert.Zero(t, calls.Load())
}

func TestNewsAPI_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"error status", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			src := NewNewsAPI("k", "us", Options{BaseURL: srv.URL, Timeout: 100 * time.Millisecond})
			assert.Empty(t, src.FetchHeadlines(context.Background(), news.Business, 1, 10))
		})
	}
}

func TestNewsAPI_Search(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(jsonHandler(t, map[string]any{
		"status": "ok",
		"articles": []map[string]any{
			{"title": "Go 1.25 released", "url": "https://go.dev/blog/go1.25", "publishedAt": "2024-05-01T10:00:00Z"},
		},
	}, func(r *http.Request) { got = r }))
	defer srv.Close()

	src := NewNewsAPI("k", "us", Options{BaseURL: srv.URL})
	articles := src.Search(context.Background(), "golang", 1, 10)

	require.Len(t, articles, 1)
	assert.Equal(t, "golang", got.URL.Query().Get("q"))
	assert.Equal(t, "publishedAt", got.URL.Query().Get("sortBy"))
	assert.Equal(t, "NewsAPI", articles[0].Source)
	assert.Empty(t, articles[0].Category)
}
