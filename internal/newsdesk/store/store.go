// Package store persists articles keyed by URL on top of pkg/storage.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// Schema works for both SQLite and PostgreSQL.
const Schema = `
CREATE TABLE IF NOT EXISTS articles (
    url          TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    summary      TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT 'General',
    published_at TIMESTAMP NOT NULL,
    scraped_at   TIMESTAMP NOT NULL,
    pinned       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_category_published ON articles(category, published_at);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_scraped ON articles(scraped_at);
`

// ErrNotFound is returned when an article URL is not stored.
var ErrNotFound = errors.New("article not found")

const defaultTake = 50

// Filter selects stored articles. Zero fields are ignored.
type Filter struct {
	Category       news.Category
	PublishedAfter time.Time
	ScrapedAfter   time.Time
	Search         string
}

// PurgeFilter selects rows to delete: published before PublishedBefore
// OR scraped before ScrapedBefore. Pinned rows survive unless
// IncludePinned is set.
type PurgeFilter struct {
	PublishedBefore time.Time
	ScrapedBefore   time.Time
	IncludePinned   bool
}

// Store provides article persistence.
type Store struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates a store and applies the schema.
func New(ctx context.Context, db *storage.DB) (*Store, error) {
	if err := db.Migrate(ctx, Schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, logger: slog.Default().With("component", "store")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const upsertSQL = `
INSERT INTO articles (url, title, summary, content, image_url, source, author, category, published_at, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (url) DO UPDATE SET
    title      = excluded.title,
    summary    = excluded.summary,
    content    = COALESCE(NULLIF(excluded.content, ''), articles.content),
    image_url  = COALESCE(NULLIF(excluded.image_url, ''), articles.image_url),
    category   = excluded.category,
    scraped_at = excluded.scraped_at
`

// Upsert inserts articles or updates the mutable fields of known URLs.
// Invalid articles are skipped. It returns the number of rows written.
func (s *Store) Upsert(ctx context.Context, articles []news.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	written := 0
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.db.Rebind(upsertSQL))
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, a := range articles {
			if err := a.Validate(); err != nil {
				s.logger.Debug("skipping invalid article", "url", a.URL, "error", err)
				continue
			}
			category := a.Category
			if category == "" {
				category = news.General
			}
			scraped := a.ScrapedAt
			if scraped.IsZero() {
				scraped = time.Now()
			}
			if _, err := stmt.ExecContext(ctx,
				a.URL, a.Title, a.Summary, a.Content, a.ImageURL, a.Source, a.Author,
				string(category), a.PublishedAt.UTC(), scraped.UTC(),
			); err != nil {
				return fmt.Errorf("upsert %s: %w", a.URL, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// FindMany returns a window of matching articles, newest first.
func (s *Store) FindMany(ctx context.Context, f Filter, skip, take int) ([]news.Article, error) {
	if take <= 0 {
		take = defaultTake
	}
	if skip < 0 {
		skip = 0
	}

	where, args := f.where()
	query := "SELECT url, title, summary, content, image_url, source, author, category, published_at, scraped_at FROM articles" +
		where + " ORDER BY published_at DESC, scraped_at DESC LIMIT ? OFFSET ?"
	args = append(args, take, skip)

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []news.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of matching articles.
func (s *Store) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT COUNT(*) FROM articles"+where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// DeleteMany removes aged rows. A filter with neither bound set deletes
// nothing.
func (s *Store) DeleteMany(ctx context.Context, f PurgeFilter) (int64, error) {
	var (
		conds []string
		args  []any
	)
	if !f.PublishedBefore.IsZero() {
		conds = append(conds, "published_at < ?")
		args = append(args, f.PublishedBefore.UTC())
	}
	if !f.ScrapedBefore.IsZero() {
		conds = append(conds, "scraped_at < ?")
		args = append(args, f.ScrapedBefore.UTC())
	}
	if len(conds) == 0 {
		return 0, nil
	}

	query := "DELETE FROM articles WHERE (" + strings.Join(conds, " OR ") + ")"
	if !f.IncludePinned {
		query += " AND pinned = 0"
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete articles: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("purged articles", "deleted", n)
	return n, nil
}

// Get returns the article stored under url, or ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, url string) (*news.Article, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(
		"SELECT url, title, summary, content, image_url, source, author, category, published_at, scraped_at FROM articles WHERE url = ?"), url)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SetPinned marks an article as saved so purges keep it.
func (s *Store) SetPinned(ctx context.Context, url string, pinned bool) error {
	v := 0
	if pinned {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE articles SET pinned = ? WHERE url = ?"), v, url)
	if err != nil {
		return fmt.Errorf("pin article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return nil
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if !f.PublishedAfter.IsZero() {
		conds = append(conds, "published_at >= ?")
		args = append(args, f.PublishedAfter.UTC())
	}
	if !f.ScrapedAfter.IsZero() {
		conds = append(conds, "scraped_at >= ?")
		args = append(args, f.ScrapedAfter.UTC())
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(summary) LIKE ?)")
		like := "%" + strings.ToLower(term) + "%"
		args = append(args, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (news.Article, error) {
	var (
		a        news.Article
		category string
	)
	if err := row.Scan(&a.URL, &a.Title, &a.Summary, &a.Content, &a.ImageURL, &a.Source, &a.Author,
		&category, &a.PublishedAt, &a.ScrapedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan article: %w", err)
	}
	a.Category = news.Category(category)
	return a, nil
}
