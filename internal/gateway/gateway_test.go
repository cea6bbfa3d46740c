package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// --- fakeProvider: an in-memory LLMProvider stand-in for gateway tests ---

type fakeProvider struct {
	name      string
	resp      *LLMResponse
	err       error
	embedResp *EmbedResponse
	embedErr  error
	calls     int
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Models() []string { return []string{"fake-model"} }

func (f *fakeProvider) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.embedResp, nil
}

// --- Gateway fallback behavior ---

func TestGateway_Chat_UsesFirstHealthyBackend(t *testing.T) {
	first := &fakeProvider{name: "first", resp: &LLMResponse{Content: "hi from first"}}
	second := &fakeProvider{name: "second", resp: &LLMResponse{Content: "hi from second"}}

	gw := New(nil, nil, first, second)
	resp, err := gw.Chat(context.Background(), LLMRequest{Messages: []Message{{Role: "user", Content: "hello"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hi from first" {
		t.Errorf("content = %q, want hi from first", resp.Content)
	}
	if second.calls != 0 {
		t.Error("second backend should not have been called")
	}
}

func TestGateway_Chat_FallsBackOnError(t *testing.T) {
	first := &fakeProvider{name: "first", err: ErrModelOOM}
	second := &fakeProvider{name: "second", resp: &LLMResponse{Content: "rescued"}}

	gw := New(nil, nil, first, second)
	resp, err := gw.Chat(context.Background(), LLMRequest{Messages: []Message{{Role: "user", Content: "hello"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "rescued" {
		t.Errorf("content = %q, want rescued", resp.Content)
	}
	if first.calls != 1 {
		t.Errorf("first.calls = %d, want 1", first.calls)
	}
}

func TestGateway_Chat_AllBackendsFail(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("boom")}
	second := &fakeProvider{name: "second", err: errors.New("also boom")}

	gw := New(nil, nil, first, second)
	_, err := gw.Chat(context.Background(), LLMRequest{Messages: []Message{{Role: "user", Content: "hello"}}})
	if err == nil {
		t.Fatal("expected error when every backend fails")
	}
	if !strings.Contains(err.Error(), "also boom") {
		t.Errorf("error should wrap the last backend's failure, got: %v", err)
	}
}

func TestGateway_Chat_NoBackends(t *testing.T) {
	gw := New(nil, nil)
	_, err := gw.Chat(context.Background(), LLMRequest{})
	if err == nil {
		t.Fatal("expected error with no backends configured")
	}
}

func TestGateway_Generate_WrapsPromptAsUserMessage(t *testing.T) {
	var captured LLMRequest
	fake := &fakeProviderCapture{resp: &LLMResponse{Content: "ok"}, capture: &captured}

	gw := New(nil, nil, fake)
	_, err := gw.Generate(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Content != "summarize this" {
		t.Errorf("unexpected request: %+v", captured)
	}
}

type fakeProviderCapture struct {
	resp    *LLMResponse
	capture *LLMRequest
}

func (f *fakeProviderCapture) Name() string     { return "capture" }
func (f *fakeProviderCapture) Models() []string { return nil }
func (f *fakeProviderCapture) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	*f.capture = req
	return f.resp, nil
}
func (f *fakeProviderCapture) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	return nil, ErrNotSupported
}

func TestGateway_Embed_SkipsUnsupportedBackends(t *testing.T) {
	noEmbed := &fakeProvider{name: "chat-only", embedErr: ErrNotSupported}
	withEmbed := &fakeProvider{name: "embedder", embedResp: &EmbedResponse{Vector: []float32{0.1, 0.2}}}

	gw := New(nil, nil, noEmbed, withEmbed)
	resp, err := gw.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(resp.Vector) != 2 {
		t.Errorf("vector length = %d, want 2", len(resp.Vector))
	}
}

func TestGateway_Embed_NoBackendSupportsIt(t *testing.T) {
	noEmbed := &fakeProvider{name: "chat-only", embedErr: ErrNotSupported}
	gw := New(nil, nil, noEmbed)
	_, err := gw.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error when no backend supports embedding")
	}
}

func TestGateway_ChatStream_EmitsWordsThenFinal(t *testing.T) {
	fake := &fakeProvider{name: "streamer", resp: &LLMResponse{Content: "one two three"}}
	gw := New(nil, nil, fake)

	var deltas []string
	var sawFinal bool
	for chunk := range gw.ChatStream(context.Background(), LLMRequest{Messages: []Message{{Role: "user", Content: "go"}}}) {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		if chunk.Done {
			sawFinal = chunk.Final != nil
			continue
		}
		deltas = append(deltas, chunk.Delta)
	}
	if !sawFinal {
		t.Error("expected a final chunk carrying the full response")
	}
	joined := strings.Join(deltas, "")
	if joined != "one two three" {
		t.Errorf("joined deltas = %q, want %q", joined, "one two three")
	}
}

// --- UniversalProvider (raw OpenAI-compatible HTTP) ---

func TestUniversalProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer local-key" {
			t.Errorf("missing bearer auth header, got %q", r.Header.Get("Authorization"))
		}

		var req universalRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 0 {
			t.Error("expected messages in request")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "llama3.3",
			"choices": []map[string]any{
				{
					"finish_reason": "stop",
					"message":       map[string]any{"content": "hello from ollama"},
				},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
	defer srv.Close()

	cfg := OllamaConfig("llama3.3")
	cfg.BaseURL = srv.URL
	cfg.APIKey = "local-key"
	p := NewUniversalProvider(cfg)

	resp, err := p.Complete(context.Background(), LLMRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello from ollama" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", resp.InputTokens, resp.OutputTokens)
	}
}

func TestUniversalProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model not loaded", "type": "server_error"},
		})
	}))
	defer srv.Close()

	cfg := CustomConfig("local", srv.URL, "", "some-model")
	p := NewUniversalProvider(cfg)

	_, err := p.Complete(context.Background(), LLMRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error should surface backend message, got: %v", err)
	}
}

func TestUniversalProvider_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "llama3.3",
			"choices": []map[string]any{
				{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []map[string]any{
							{
								"id": "call_1",
								"function": map[string]any{
									"name":      "search",
									"arguments": `{"query":"weather"}`,
								},
							},
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	cfg := OllamaConfig("llama3.3")
	cfg.BaseURL = srv.URL
	p := NewUniversalProvider(cfg)

	resp, err := p.Complete(context.Background(), LLMRequest{
		Messages: []Message{{Role: "user", Content: "what's the weather"}},
		Tools:    []Tool{{Name: "search", Description: "web search"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "search" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
}

func TestUniversalProvider_Embed_NotSupported(t *testing.T) {
	p := NewUniversalProvider(OllamaConfig("llama3.3"))
	_, err := p.Embed(context.Background(), "text")
	if err != ErrNotSupported {
		t.Errorf("err = %v, want ErrNotSupported", err)
	}
}

func TestUniversalProvider_ModelEntries(t *testing.T) {
	cfg := GroqConfig("key")
	p := NewUniversalProvider(cfg)
	entries := p.ModelEntries()
	if len(entries) != len(cfg.Models) {
		t.Fatalf("got %d entries, want %d", len(entries), len(cfg.Models))
	}
	for _, e := range entries {
		if e.Provider != "groq" {
			t.Errorf("provider = %q, want groq", e.Provider)
		}
	}
}

func TestUniversalProvider_CalculateCost(t *testing.T) {
	cfg := OpenRouterConfig("key")
	p := NewUniversalProvider(cfg)
	cost := p.calculateCost("anthropic/claude-sonnet-4-20250514", 1_000_000, 1_000_000)
	want := 3.0 + 15.0
	if fmt.Sprintf("%.2f", cost) != fmt.Sprintf("%.2f", want) {
		t.Errorf("cost = %f, want %f", cost, want)
	}
}

// --- IsOOM classification ---

func TestIsOOM(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrModelOOM, true},
		{errors.New("CUDA out of memory"), true},
		{errors.New("process killed"), true},
		{errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		if got := IsOOM(tt.err); got != tt.want {
			t.Errorf("IsOOM(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// --- Pricing sanity checks for the native-SDK backends ---

func TestOpenAICalculateCost(t *testing.T) {
	cost := openaiCalculateCost("gpt-4o-mini", 1_000_000, 1_000_000)
	want := 0.15 + 0.60
	if fmt.Sprintf("%.2f", cost) != fmt.Sprintf("%.2f", want) {
		t.Errorf("cost = %f, want %f", cost, want)
	}
}

func TestClaudeCalculateCost(t *testing.T) {
	cost := claudeCalculateCost("claude-haiku-3-5-20241022", 1_000_000, 1_000_000)
	want := 0.25 + 1.25
	if fmt.Sprintf("%.2f", cost) != fmt.Sprintf("%.2f", want) {
		t.Errorf("cost = %f, want %f", cost, want)
	}
}
