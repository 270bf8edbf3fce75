package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAIProvider_Chat(t *testing.T) {
	var got chatCompletionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"<final_answer>hi</final_answer>"},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "sk-test", srv.URL+"/v1/", "gpt-test")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "<question>q</question>"},
		},
		Tools: []ToolDefinition{{Type: "function", Function: ToolFunctionSchema{
			Name:       "read_file",
			Parameters: map[string]interface{}{"$schema": "x", "type": "object"},
		}}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "<final_answer>hi</final_answer>" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 42 || resp.FinishReason != "stop" {
		t.Errorf("unexpected metadata: %+v", resp)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("unexpected auth header %q", auth)
	}
	if got.Model != "gpt-test" {
		t.Errorf("default model not applied: %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[1].Role != RoleUser {
		t.Errorf("messages not forwarded: %+v", got.Messages)
	}
	if len(got.Tools) != 1 {
		t.Fatalf("tools not forwarded: %+v", got.Tools)
	}
	if _, ok := got.Tools[0].Function.Parameters["$schema"]; ok {
		t.Error("expected $schema cleaned for openai")
	}
}

func TestOpenAIProvider_OmitsEmptyTools(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("custom", "k", srv.URL, "m")
	if _, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if _, ok := raw["tools"]; ok {
		t.Error("tools key should be omitted when no tools are given")
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantText   string
	}{
		{name: "unauthorized", status: 401, body: `{"error":{"message":"invalid api key"}}`, wantStatus: 401, wantText: "invalid api key"},
		{name: "no choices", status: 200, body: `{"choices":[]}`, wantStatus: 200, wantText: "no choices"},
		{name: "malformed", status: 200, body: `not json`, wantStatus: 200, wantText: "decode response"},
		{name: "api error body", status: 200, body: `{"error":{"message":"quota exceeded"}}`, wantStatus: 200, wantText: "quota exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p := NewOpenAIProvider("openai", "k", srv.URL, "m")
			_, err := p.Chat(context.Background(), ChatRequest{})
			var mce *ModelCallError
			if !errors.As(err, &mce) {
				t.Fatalf("expected *ModelCallError, got %T %v", err, err)
			}
			if mce.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", mce.Status, tt.wantStatus)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantText)
			}
		})
	}
}

func TestOpenAIProvider_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOpenAIProvider("openai", "k", url, "m")
	_, err := p.Chat(context.Background(), ChatRequest{})
	var mce *ModelCallError
	if !errors.As(err, &mce) || mce.Status != 0 || mce.Err == nil {
		t.Fatalf("expected transport ModelCallError, got %v", err)
	}
}

func TestDashScopeDefaults(t *testing.T) {
	p := NewDashScopeProvider("k", "", "")
	if p.Name() != "dashscope" {
		t.Errorf("unexpected name %q", p.Name())
	}
	if p.DefaultModel() != dashscopeDefaultModel {
		t.Errorf("unexpected model %q", p.DefaultModel())
	}
	if p.APIBase() != dashscopeDefaultBase {
		t.Errorf("unexpected base %q", p.APIBase())
	}
}

type countingProvider struct {
	calls int
}

func (c *countingProvider) Name() string         { return "counting" }
func (c *countingProvider) DefaultModel() string { return "m" }
func (c *countingProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	c.calls++
	return &ChatResponse{Content: "ok"}, nil
}

func TestNewRateLimited(t *testing.T) {
	inner := &countingProvider{}
	if NewRateLimited(inner, 0) != Provider(inner) {
		t.Error("rpm=0 should return the provider unwrapped")
	}

	limited := NewRateLimited(inner, 1) // one request per minute, burst 1
	if _, err := limited.Chat(context.Background(), ChatRequest{}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := limited.Chat(ctx, ChatRequest{})
	var mce *ModelCallError
	if !errors.As(err, &mce) {
		t.Fatalf("expected ModelCallError while throttled, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("throttled call must not reach the provider, calls=%d", inner.calls)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Options{Name: "dashscope"}); err == nil {
		t.Error("expected error without api key")
	}

	p, err := New(Options{Name: "dashscope", APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := p.(*DashScopeProvider); !ok {
		t.Errorf("expected *DashScopeProvider, got %T", p)
	}

	p, err = New(Options{Name: "deepseek", APIKey: "k", APIBase: "https://api.deepseek.com/v1", RPM: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := p.(*RateLimited); !ok {
		t.Errorf("expected *RateLimited, got %T", p)
	}
	if p.Name() != "deepseek" {
		t.Errorf("unexpected name %q", p.Name())
	}
}

func TestAPIBaseOf(t *testing.T) {
	p, err := New(Options{Name: "dashscope", APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := APIBaseOf(p); got != dashscopeDefaultBase {
		t.Errorf("dashscope base = %q", got)
	}

	p, err = New(Options{Name: "deepseek", APIKey: "k", APIBase: "https://api.deepseek.com/v1/", RPM: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := APIBaseOf(p); got != "https://api.deepseek.com/v1" {
		t.Errorf("rate-limited base = %q", got)
	}

	if got := APIBaseOf(&countingProvider{}); got != "" {
		t.Errorf("expected empty base for a provider without one, got %q", got)
	}
}
