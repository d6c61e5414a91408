package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/assistant"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/enricher"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

type call struct {
	op       string
	category news.Category
	query    string
	page     int
	size     int
	force    bool
}

type fakeNewsroom struct {
	calls []call
}

func (f *fakeNewsroom) page(page int) news.Page {
	total := 1
	return news.Page{
		Articles:   []news.Article{{Title: "Story", URL: "https://example.com/a", Category: news.General}},
		Pagination: news.Pagination{Page: page, PageSize: 20, Total: &total},
	}
}

func (f *fakeNewsroom) GetHeadlines(ctx context.Context, category news.Category, page, pageSize int) (news.Page, error) {
	f.calls = append(f.calls, call{op: "headlines", category: category, page: page, size: pageSize})
	return f.page(page), nil
}

func (f *fakeNewsroom) Search(ctx context.Context, query string, page, pageSize int) (news.Page, error) {
	f.calls = append(f.calls, call{op: "search", query: query, page: page, size: pageSize})
	if query == "boom" {
		return news.Page{}, fmt.Errorf("store exploded")
	}
	return news.Page{Articles: []news.Article{}, Pagination: news.Pagination{Page: page}}, nil
}

func (f *fakeNewsroom) Refresh(ctx context.Context, category news.Category, page, pageSize int, force bool) (news.Page, error) {
	f.calls = append(f.calls, call{op: "refresh", category: category, page: page, size: pageSize, force: force})
	return f.page(page), nil
}

type fakeEnricher struct{}

func (fakeEnricher) Enrich(ctx context.Context, url string) (enricher.Result, error) {
	if !news.IsAbsoluteURL(url) {
		return enricher.Result{}, fmt.Errorf("%w: bad url", news.ErrInvalidInput)
	}
	return enricher.Result{Content: "full text of " + url, Extracted: true}, nil
}

type fakeAssistant struct{ category news.Category }

func (f *fakeAssistant) Ask(ctx context.Context, question string, category news.Category) (*assistant.Answer, error) {
	f.category = category
	return &assistant.Answer{Reply: "answer to " + question}, nil
}

func newTestServer(secret string) (*fakeNewsroom, *fakeAssistant, http.Handler) {
	nr, asst := &fakeNewsroom{}, &fakeAssistant{}
	srv := NewServer(nr, fakeEnricher{}, asst, Options{AdminSecret: secret, CORSOrigins: []string{"http://localhost:3000"}})
	return nr, asst, srv.Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetNews(t *testing.T) {
	nr, _, h := newTestServer("")

	rec := do(t, h, http.MethodGet, "/api/news?category=technology&page=2&pageSize=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, call{op: "headlines", category: news.Technology, page: 2, size: 5}, nr.calls[0])

	var page news.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Pagination.Page)
	require.Len(t, page.Articles, 1)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestGetNewsSearch(t *testing.T) {
	nr, _, h := newTestServer("")

	rec := do(t, h, http.MethodGet, "/api/news?search=+election+&category=bogus", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "search", nr.calls[0].op)
	assert.Equal(t, "election", nr.calls[0].query)

	rec = do(t, h, http.MethodGet, "/api/news?search=boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestGetNewsValidation(t *testing.T) {
	_, _, h := newTestServer("")

	for _, target := range []string{"/api/news?category=gossip", "/api/news?page=two", "/api/news?pageSize=x"} {
		rec := do(t, h, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestRefresh(t *testing.T) {
	nr, _, h := newTestServer("")

	rec := do(t, h, http.MethodPost, "/api/news/refresh", `{"forceRefresh":true,"category":"Sports","page":1}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, call{op: "refresh", category: news.Sports, page: 1, force: true}, nr.calls[0])

	rec = do(t, h, http.MethodPost, "/api/news/refresh", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, nr.calls[1].force)

	rec = do(t, h, http.MethodPost, "/api/news/refresh", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForcedRefreshNeedsAdmin(t *testing.T) {
	const secret = "s3cret"
	nr, _, h := newTestServer(secret)
	body := `{"forceRefresh":true}`

	rec := do(t, h, http.MethodPost, "/api/news/refresh", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	reader, err := IssueToken(secret, "reader", time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/news/refresh", body, map[string]string{"Authorization": "Bearer " + reader})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := IssueToken("other", RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/news/refresh", body, map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := IssueToken(secret, RoleAdmin, -time.Minute)
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/news/refresh", body, map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, nr.calls)

	admin, err := IssueToken(secret, RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/api/news/refresh", body, map[string]string{"Authorization": "Bearer " + admin})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, nr.calls, 1)

	// Unforced refresh stays public.
	rec = do(t, h, http.MethodPost, "/api/news/refresh", `{}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueTokenNeedsSecret(t *testing.T) {
	_, err := IssueToken("", RoleAdmin, time.Hour)
	assert.Error(t, err)
}

func TestEnrich(t *testing.T) {
	_, _, h := newTestServer("")

	rec := do(t, h, http.MethodPost, "/api/news/enrich", `{"url":"https://example.com/story"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res enricher.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "full text of https://example.com/story", res.Content)

	rec = do(t, h, http.MethodGet, "/api/news/enrich?url=https://example.com/x", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/news/enrich?url=ftp://example.com/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoriesAndHealth(t *testing.T) {
	_, _, h := newTestServer("")

	rec := do(t, h, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Categories []news.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, news.AllCategories(), body.Categories)

	rec = do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestChat(t *testing.T) {
	_, asst, h := newTestServer("")

	rec := do(t, h, http.MethodPost, "/api/chat", `{"message":"what's new?","category":"world"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "answer to what's new?")
	assert.Equal(t, news.World, asst.category)

	noAssistant := NewServer(&fakeNewsroom{}, fakeEnricher{}, nil, Options{}).Routes()
	rec = do(t, noAssistant, http.MethodPost, "/api/chat", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddleware(t *testing.T) {
	_, _, h := newTestServer("")

	rec := do(t, h, http.MethodOptions, "/api/news", "", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/healthz", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = do(t, h, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
