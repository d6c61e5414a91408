// Package llm is a small text-generation client for OpenAI-compatible
// chat endpoints (OpenAI, Ollama, MiniMax) and Anthropic Claude, with
// retries and token cost estimates.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider names a text-generation backend.
type Provider string

const (
	OpenAI  Provider = "openai"
	Claude  Provider = "claude"
	Ollama  Provider = "ollama"
	MiniMax Provider = "minimax"
)

// Default endpoints per provider.
const (
	openAIBase  = "https://api.openai.com/v1"
	claudeBase  = "https://api.anthropic.com/v1"
	ollamaBase  = "http://localhost:11434/v1"
	miniMaxBase = "https://api.minimax.io/v1"
)

// Config holds configuration for a Client.
type Config struct {
	Provider    Provider      `yaml:"provider" env:"NEWSDESK_LLM_PROVIDER"`
	Model       string        `yaml:"model" env:"NEWSDESK_LLM_MODEL"`
	APIKey      string        `yaml:"api_key" env:"NEWSDESK_LLM_API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"NEWSDESK_LLM_BASE_URL"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// DefaultConfig returns the OpenAI defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    OpenAI,
		Model:       "gpt-4o-mini",
		MaxRetries:  3,
		Timeout:     30 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.3,
	}
}

// Client generates text from a conversation.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	Provider() Provider
	Close() error
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request holds the parameters for one generation.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Response is the result of a generation.
type Response struct {
	Content   string  `json:"content"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	Cost      float64 `json:"cost"`
	Model     string  `json:"model"`
	LatencyMs int64   `json:"latency_ms"`
}

// NewClient creates a client for cfg.Provider wrapped with retries.
func NewClient(cfg Config) (Client, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var (
		c   Client
		err error
	)
	switch cfg.Provider {
	case OpenAI, "":
		c, err = newOpenAIClient(OpenAI, cfg, openAIBase, true)
	case MiniMax:
		c, err = newOpenAIClient(MiniMax, cfg, miniMaxBase, true)
	case Ollama:
		c, err = newOpenAIClient(Ollama, cfg, ollamaBase, false)
	case Claude:
		c, err = newClaudeClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return wrapWithRetry(c, cfg.MaxRetries), nil
}

// Ask is a one-shot helper around Generate.
func Ask(ctx context.Context, c Client, system, prompt string) (string, error) {
	resp, err := c.Generate(ctx, &Request{
		System:   system,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func pick[T int | float64](override, fallback T) T {
	if override > 0 {
		return override
	}
	return fallback
}
