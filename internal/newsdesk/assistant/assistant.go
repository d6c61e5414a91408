// Package assistant answers reader questions over recently ingested
// articles using a text-generation service.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/freshness"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/store"
	"github.com/RobinCoderZhao/newsdesk/pkg/llm"
)

const (
	// DefaultContextArticles is how many articles are shown to the model.
	DefaultContextArticles = 20
	contentRunes           = 500
)

const systemPrompt = `You are a news assistant. Answer using only the articles provided.
Cite article titles when you rely on them. If the articles do not cover the question, say so.`

// Finder is the read side of the article store.
type Finder interface {
	FindMany(ctx context.Context, f store.Filter, skip, take int) ([]news.Article, error)
}

// Answer is the assistant's reply and the articles it was given.
type Answer struct {
	Reply     string         `json:"reply"`
	Articles  []news.Article `json:"articles"`
	Model     string         `json:"model,omitempty"`
	TokensIn  int            `json:"tokensIn,omitempty"`
	TokensOut int            `json:"tokensOut,omitempty"`
}

// Assistant combines the store and a text-generation client.
type Assistant struct {
	client llm.Client
	finder Finder
	policy freshness.Policy
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// New creates an assistant. limit <= 0 selects DefaultContextArticles.
func New(client llm.Client, finder Finder, policy freshness.Policy, limit int, logger *slog.Logger) *Assistant {
	if limit <= 0 {
		limit = DefaultContextArticles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		client: client,
		finder: finder,
		policy: policy.WithDefaults(),
		limit:  limit,
		logger: logger.With("component", "assistant"),
		now:    time.Now,
	}
}

// Ask answers question from the articles of category ("" for all)
// published inside the retention window.
func (a *Assistant) Ask(ctx context.Context, question string, category news.Category) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", news.ErrInvalidInput)
	}

	filter := store.Filter{Category: category, PublishedAfter: a.policy.RecencyCutoff(a.now())}
	articles, err := a.finder.FindMany(ctx, filter, 0, a.limit)
	if err != nil {
		return nil, fmt.Errorf("load context articles: %w", err)
	}

	prompt := fmt.Sprintf("Recent articles:\n\n%s\nQuestion: %s", FormatContext(articles), question)
	resp, err := a.client.Generate(ctx, &llm.Request{
		System:   systemPrompt,
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	a.logger.Info("question answered", "category", category, "articles", len(articles),
		"model", resp.Model, "tokens_in", resp.TokensIn, "tokens_out", resp.TokensOut)
	return &Answer{
		Reply:     resp.Content,
		Articles:  articles,
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	}, nil
}

// FormatContext renders articles as the numbered context block handed to
// the model. Content is cut to 500 runes.
func FormatContext(articles []news.Article) string {
	if len(articles) == 0 {
		return "(no recent articles)\n"
	}
	var sb strings.Builder
	for i, art := range articles {
		fmt.Fprintf(&sb, "---\n[%d] Title: %s\nSource: %s\nCategory: %s\nPublished: %s\n",
			i+1, art.Title, art.Source, art.Category, art.PublishedAt.UTC().Format(time.RFC3339))
		if art.Summary != "" {
			fmt.Fprintf(&sb, "Summary: %s\n", art.Summary)
		}
		if art.Content != "" {
			fmt.Fprintf(&sb, "Content: %s\n", truncate(art.Content, contentRunes))
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
