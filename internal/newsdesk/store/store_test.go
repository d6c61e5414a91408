package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(storage.Config{Driver: storage.SQLite, DSN: filepath.Join(t.TempDir(), "news.db")})
	require.NoError(t, err)
	s, err := New(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func urls(articles []news.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.URL
	}
	return out
}

func TestUpsert_KeyedOnURL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	published := now.Add(-2 * time.Hour)

	n, err := s.Upsert(ctx, []news.Article{{
		Title: "Foo", URL: "https://x.com/a", Source: "NewsAPI", Content: "full body",
		Category: news.Technology, PublishedAt: published, ScrapedAt: now.Add(-time.Hour),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Upsert(ctx, []news.Article{{
		Title: "Foo (updated)", URL: "https://x.com/a", Source: "GNews", Summary: "new summary",
		Category: news.Business, PublishedAt: now, ScrapedAt: now,
	}})
	require.NoError(t, err)

	count, err := s.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.Get(ctx, "https://x.com/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Foo (updated)", got.Title)
	assert.Equal(t, "new summary", got.Summary)
	assert.Equal(t, news.Business, got.Category)
	// Identity fields are preserved, empty content does not wipe the body.
	assert.Equal(t, "NewsAPI", got.Source)
	assert.Equal(t, "full body", got.Content)
	assert.WithinDuration(t, published, got.PublishedAt, time.Second)
	assert.WithinDuration(t, now, got.ScrapedAt, time.Second)
}

func TestUpsert_SkipsInvalidAndDefaultsCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	n, err := s.Upsert(ctx, []news.Article{
		{Title: "", URL: "https://x.com/empty", PublishedAt: now},
		{Title: "Relative", URL: "/relative", PublishedAt: now},
		{Title: "Ok", URL: "https://x.com/ok", PublishedAt: now},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "https://x.com/ok")
	require.NoError(t, err)
	assert.Equal(t, news.General, got.Category)
}

func TestFindMany_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	_, err := s.Upsert(ctx, []news.Article{
		{Title: "Old tech", URL: "https://x.com/1", Category: news.Technology, PublishedAt: now.Add(-3 * time.Hour), ScrapedAt: now},
		{Title: "New tech", URL: "https://x.com/2", Category: news.Technology, PublishedAt: now.Add(-1 * time.Hour), ScrapedAt: now},
		{Title: "Sports news", URL: "https://x.com/3", Category: news.Sports, PublishedAt: now, ScrapedAt: now},
		{Title: "Ancient tech", URL: "https://x.com/4", Category: news.Technology, PublishedAt: now.Add(-72 * time.Hour), ScrapedAt: now},
	})
	require.NoError(t, err)

	rows, err := s.FindMany(ctx, Filter{Category: news.Technology, PublishedAfter: now.Add(-48 * time.Hour)}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/2", "https://x.com/1"}, urls(rows))

	rows, err = s.FindMany(ctx, Filter{Category: news.Technology}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/1"}, urls(rows))

	rows, err = s.FindMany(ctx, Filter{Search: "SPORTS"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/3"}, urls(rows))

	n, err := s.Count(ctx, Filter{Category: news.Technology})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteMany_RetentionBoundary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	_, err := s.Upsert(ctx, []news.Article{
		{Title: "recent", URL: "https://x.com/recent", PublishedAt: now.Add(-47 * time.Hour), ScrapedAt: now.Add(-23 * time.Hour)},
		{Title: "old publish", URL: "https://x.com/old-pub", PublishedAt: now.Add(-49 * time.Hour), ScrapedAt: now.Add(-time.Hour)},
		{Title: "stale scrape", URL: "https://x.com/stale", PublishedAt: now.Add(-time.Hour), ScrapedAt: now.Add(-25 * time.Hour)},
		{Title: "both aged", URL: "https://x.com/both", PublishedAt: now.Add(-72 * time.Hour), ScrapedAt: now.Add(-30 * time.Hour)},
		{Title: "pinned", URL: "https://x.com/pinned", PublishedAt: now.Add(-72 * time.Hour), ScrapedAt: now.Add(-30 * time.Hour)},
	})
	require.NoError(t, err)
	require.NoError(t, s.SetPinned(ctx, "https://x.com/pinned", true))

	deleted, err := s.DeleteMany(ctx, PurgeFilter{
		PublishedBefore: now.Add(-48 * time.Hour),
		ScrapedBefore:   now.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	rows, err := s.FindMany(ctx, Filter{}, 0, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://x.com/recent", "https://x.com/pinned"}, urls(rows))
}

func TestDeleteMany_EmptyFilterIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Upsert(ctx, []news.Article{{Title: "a", URL: "https://x.com/a", PublishedAt: time.Now()}})
	require.NoError(t, err)

	n, err := s.DeleteMany(ctx, PurgeFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetAndPin_Missing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.Get(ctx, "https://x.com/missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.SetPinned(ctx, "https://x.com/missing", true), ErrNotFound)
}
