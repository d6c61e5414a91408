package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// openaiClient speaks the chat/completions protocol shared by OpenAI,
// MiniMax and Ollama.
type openaiClient struct {
	provider Provider
	cfg      Config
	http     *http.Client
	base     string
}

func newOpenAIClient(provider Provider, cfg Config, defaultBase string, needsKey bool) (Client, error) {
	if needsKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", provider)
	}
	base := defaultBase
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &openaiClient{
		provider: provider,
		cfg:      cfg,
		base:     base,
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

func (c *openaiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	messages := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	body := openaiRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   pick(req.MaxTokens, c.cfg.MaxTokens),
		Temperature: pick(req.Temperature, c.cfg.Temperature),
	}
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	var out openaiResponse
	if err := postJSON(ctx, c.http, c.provider, c.base+"/chat/completions", headers, body, &out, openaiErrorMessage); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices in response", c.provider)
	}

	model := out.Model
	if model == "" {
		model = c.cfg.Model
	}
	return &Response{
		Content:   stripThinkTags(out.Choices[0].Message.Content),
		TokensIn:  out.Usage.PromptTokens,
		TokensOut: out.Usage.CompletionTokens,
		Cost:      EstimateCost(model, out.Usage.PromptTokens, out.Usage.CompletionTokens),
		Model:     model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func (c *openaiClient) Provider() Provider { return c.provider }
func (c *openaiClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func openaiErrorMessage(raw []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &e) != nil {
		return ""
	}
	return e.Error.Message
}

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinkTags removes reasoning blocks some models emit before the answer.
func stripThinkTags(content string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(content, ""))
}
