package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/categorize"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/sources"
	"github.com/RobinCoderZhao/newsdesk/pkg/scraper"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Hour, cfg.Policy.FreshFor)
	assert.Equal(t, storage.SQLite, cfg.Database.Driver)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
database:
  driver: postgres
  dsn: postgres://news@localhost/news
sources:
  newsapi:
    api_key: abc
  community:
    topics:
      Technology:
        subreddits: [golang]
policy:
  fresh_for: 30m
breaking:
  keywords: [breaking]
categories:
  - category: technology
    keywords: [gopher]
`), 0o600))
	t.Setenv("GUARDIAN_API_KEY", "g-key")
	t.Setenv("NEWSDESK_RETENTION", "72h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, storage.Postgres, cfg.Database.Driver)
	assert.Equal(t, "abc", cfg.Sources.NewsAPI.APIKey)
	assert.Equal(t, "g-key", cfg.Sources.Guardian.APIKey)
	assert.Equal(t, []string{"golang"}, cfg.Sources.Community.Topics[news.Technology].Subreddits)
	assert.Equal(t, 30*time.Minute, cfg.Policy.FreshFor)
	assert.Equal(t, 72*time.Hour, cfg.Policy.Retention)
	assert.Equal(t, []string{"breaking"}, cfg.Breaking.Keywords)
	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, news.Technology, cfg.Categories[0].Category)
	// Untouched sections keep their defaults.
	assert.Equal(t, "http", cfg.Enricher.Browser)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "database.driver")

	cfg = Default()
	cfg.Enricher.Browser = "firefox"
	assert.ErrorContains(t, cfg.Validate(), "enricher.browser")

	cfg = Default()
	cfg.Categories = []categorize.Rule{{Category: "Gossip", Keywords: []string{"celebrity"}}}
	assert.ErrorContains(t, cfg.Validate(), "Gossip")
}

func TestValidateNormalizesCommunityTopics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  community:
    topics:
      technology:
        subreddits: [golang]
      WORLD:
        subreddits: [worldnews]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, cfg.Sources.Community.Topics[news.Technology].Subreddits)
	assert.Equal(t, []string{"worldnews"}, cfg.Sources.Community.Topics[news.World].Subreddits)
	assert.NotContains(t, cfg.Sources.Community.Topics, news.Category("technology"))

	cfg = Default()
	cfg.Sources.Community.Topics = map[news.Category]sources.CommunityFeeds{"gossip": {}}
	assert.ErrorContains(t, cfg.Validate(), "sources.community.topics")

	cfg = Default()
	cfg.Sources.Community.Topics = map[news.Category]sources.CommunityFeeds{"science": {}, "Science": {}}
	assert.ErrorContains(t, cfg.Validate(), "listed twice")
}

func TestRegistryOrder(t *testing.T) {
	cfg := Default()
	reg := cfg.Sources.Registry(nil)
	var names []string
	for _, s := range reg.Sources() {
		names = append(names, s.Name())
	}
	require.Len(t, names, 4)
	assert.Equal(t, "The Guardian", names[2])

	cfg.Sources.Community.Disabled = true
	assert.Len(t, cfg.Sources.Registry(nil).Sources(), 3)
}

func TestNewBrowser(t *testing.T) {
	cfg := Default()
	assert.IsType(t, &scraper.HTTPBrowser{}, cfg.Enricher.NewBrowser())
	cfg.Enricher.Browser = "chrome"
	b := cfg.Enricher.NewBrowser()
	assert.IsType(t, &scraper.ChromeBrowser{}, b)
	assert.NoError(t, b.Close())
}
