package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

func TestClassify_HintWins(t *testing.T) {
	c := New(nil)
	got := c.Classify("Lakers win the championship", "basketball", "Technology")
	assert.Equal(t, news.Technology, got)

	got = c.Classify("Lakers win", "", "sport")
	assert.Equal(t, news.Sports, got)
}

func TestClassify_GeneralHintFallsThrough(t *testing.T) {
	c := New(nil)
	got := c.Classify("NASA telescope spots a new planet", "", "General")
	assert.Equal(t, news.Science, got)
}

func TestClassify_DefaultsToGeneral(t *testing.T) {
	c := New(nil)
	assert.Equal(t, news.General, c.Classify("A quiet afternoon", "Nothing much happened today.", ""))
	assert.Equal(t, news.General, c.Classify("", "", "unknown-section"))
}

func TestClassify_TableOrderIsPriority(t *testing.T) {
	c := New(nil)
	// Politics precedes Business in the table.
	got := c.Classify("Election results move the stock market", "", "")
	assert.Equal(t, news.Politics, got)
}

func TestClassify_WholeWordMatching(t *testing.T) {
	c := New(nil)
	// "said" must not trigger the "ai" keyword.
	assert.Equal(t, news.General, c.Classify("She said hello", "", ""))
	assert.Equal(t, news.Technology, c.Classify("New AI model released", "", ""))
}

func TestClassify_Phrases(t *testing.T) {
	c := New(nil)
	assert.Equal(t, news.Environment, c.Classify("Scorching summer", "experts blame climate change", ""))
}

func TestClassify_CustomRules(t *testing.T) {
	c := New([]Rule{{Category: news.Economy, Keywords: []string{"bitcoin"}}})
	assert.Equal(t, news.Economy, c.Classify("Bitcoin rallies", "", ""))
	// Technology is not a bucket in this table, so the hint is ignored.
	assert.Equal(t, news.General, c.Classify("Quiet day", "", "Technology"))
}

func TestApply(t *testing.T) {
	c := New(nil)
	articles := []news.Article{
		{Title: "Vaccine trial succeeds", Category: ""},
		{Title: "Untitled", Category: news.World},
		{Title: "Nothing to see"},
	}
	c.Apply(articles)
	assert.Equal(t, news.Health, articles[0].Category)
	assert.Equal(t, news.World, articles[1].Category)
	assert.Equal(t, news.General, articles[2].Category)
}
