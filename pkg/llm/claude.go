package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

type claudeClient struct {
	cfg  Config
	http *http.Client
	base string
}

func newClaudeClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", Claude)
	}
	base := claudeBase
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &claudeClient{cfg: cfg, base: base, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

func (c *claudeClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	messages := make([]claudeMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role != "system" {
			messages = append(messages, claudeMessage{Role: m.Role, Content: m.Content})
		}
	}

	body := claudeRequest{
		Model:       c.cfg.Model,
		MaxTokens:   pick(req.MaxTokens, pick(c.cfg.MaxTokens, 1024)),
		System:      req.System,
		Messages:    messages,
		Temperature: pick(req.Temperature, c.cfg.Temperature),
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var out claudeResponse
	if err := postJSON(ctx, c.http, Claude, c.base+"/messages", headers, body, &out, claudeErrorMessage); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("%s: no text in response", Claude)
	}

	return &Response{
		Content:   text.String(),
		TokensIn:  out.Usage.InputTokens,
		TokensOut: out.Usage.OutputTokens,
		Cost:      EstimateCost(out.Model, out.Usage.InputTokens, out.Usage.OutputTokens),
		Model:     out.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func (c *claudeClient) Provider() Provider { return Claude }
func (c *claudeClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func claudeErrorMessage(raw []byte) string {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &e) != nil || e.Error.Message == "" {
		return ""
	}
	return e.Error.Type + ": " + e.Error.Message
}
