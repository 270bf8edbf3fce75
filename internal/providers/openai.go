package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	openaiDefaultBase  = "https://api.openai.com/v1"
	openaiDefaultModel = "gpt-4o-mini"
	maxErrorBodyLen    = 512
)

// OpenAIProvider talks to any OpenAI-compatible /chat/completions endpoint.
// The API key is supplied at construction and never read from the environment.
type OpenAIProvider struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	client       *http.Client
}

// NewOpenAIProvider creates a provider. Empty apiBase/defaultModel fall back to OpenAI's.
func NewOpenAIProvider(name, apiKey, apiBase, defaultModel string) *OpenAIProvider {
	if name == "" {
		name = "openai"
	}
	if apiBase == "" {
		apiBase = openaiDefaultBase
	}
	if defaultModel == "" {
		defaultModel = openaiDefaultModel
	}
	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{},
	}
}

// WithHTTPClient replaces the HTTP client (tests, proxies).
func (p *OpenAIProvider) WithHTTPClient(c *http.Client) *OpenAIProvider {
	p.client = c
	return p
}

// WithTimeout bounds each request. Zero means no timeout.
func (p *OpenAIProvider) WithTimeout(d time.Duration) *OpenAIProvider {
	p.client.Timeout = d
	return p
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }
func (p *OpenAIProvider) APIBase() string      { return p.apiBase }

type chatCompletionRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Chat performs one blocking completion request.
// Matching the chat.completions contract: POST {apiBase}/chat/completions.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	body := chatCompletionRequest{
		Model:    model,
		Messages: req.Messages,
		Tools:    CleanToolSchemas(p.name, req.Tools),
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, &ModelCallError{Provider: p.name, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, &ModelCallError{Provider: p.name, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ModelCallError{Provider: p.name, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ModelCallError{Provider: p.name, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ModelCallError{
			Provider: p.name,
			Status:   resp.StatusCode,
			Body:     truncate(string(raw), maxErrorBodyLen),
		}
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ModelCallError{Provider: p.name, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != nil {
		return nil, &ModelCallError{Provider: p.name, Status: resp.StatusCode, Err: errors.New(out.Error.Message)}
	}
	if len(out.Choices) == 0 {
		return nil, &ModelCallError{Provider: p.name, Status: resp.StatusCode, Err: errors.New("response has no choices")}
	}

	choice := out.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	slog.Debug("model call completed",
		"provider", p.name,
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"finish_reason", choice.FinishReason,
		"total_tokens", out.Usage.TotalTokens,
	)

	return &ChatResponse{
		Content:      content,
		FinishReason: choice.FinishReason,
		Usage:        out.Usage,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
