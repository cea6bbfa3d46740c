package prepipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/sentineld/sentinel/internal/gateway"
)

// fakeProvider is a minimal gateway.LLMProvider stand-in for pre-pipeline tests.
type fakeProvider struct {
	content string
	err     error
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Models() []string { return []string{"fake-model"} }
func (f *fakeProvider) Complete(ctx context.Context, req gateway.LLMRequest) (*gateway.LLMResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.LLMResponse{Content: f.content}, nil
}
func (f *fakeProvider) Embed(ctx context.Context, text string) (*gateway.EmbedResponse, error) {
	return nil, gateway.ErrNotSupported
}

func newPipeline(t *testing.T, content string, err error) *PrePipeline {
	t.Helper()
	gw := gateway.New(nil, nil, &fakeProvider{content: content, err: err})
	p, perr := New(gw, "fake-model", nil)
	if perr != nil {
		t.Fatalf("New: %v", perr)
	}
	return p
}

func TestRun_ValidLLMReply(t *testing.T) {
	p := newPipeline(t, `{"category":"coding","confidence":0.9,"needs_tools":false,"rewritten":"write a fibonacci function in Go","facts":[]}`, nil)

	res := p.Run(context.Background(), "write a fib function")
	if res.Source != "llm" {
		t.Errorf("source = %q, want llm", res.Source)
	}
	if res.Category != "coding" {
		t.Errorf("category = %q, want coding", res.Category)
	}
	if res.Rewritten != "write a fibonacci function in Go" {
		t.Errorf("rewritten = %q", res.Rewritten)
	}
}

func TestRun_MarkdownFencedJSON(t *testing.T) {
	p := newPipeline(t, "```json\n{\"category\":\"math\",\"confidence\":0.8,\"needs_tools\":false,\"rewritten\":\"solve 2+2\",\"facts\":[]}\n```", nil)

	res := p.Run(context.Background(), "please solve 2+2 for me")
	if res.Category != "math" {
		t.Errorf("category = %q, want math", res.Category)
	}
	if res.Source != "llm" {
		t.Errorf("source = %q, want llm", res.Source)
	}
}

func TestRun_InvalidCategoryFallsBackToHeuristicCategory(t *testing.T) {
	p := newPipeline(t, `{"category":"not_a_real_category","confidence":0.5,"needs_tools":false,"rewritten":"debug this error: nil pointer","facts":[]}`, nil)

	res := p.Run(context.Background(), "debug this error: nil pointer")
	if res.Category != "debugging" {
		t.Errorf("category = %q, want debugging (heuristic correction)", res.Category)
	}
}

func TestRun_NoJSONInReplyFallsBackToHeuristic(t *testing.T) {
	p := newPipeline(t, "I'm not going to return JSON today.", nil)

	res := p.Run(context.Background(), "translate this into french")
	if res.Source != "heuristic" {
		t.Errorf("source = %q, want heuristic", res.Source)
	}
	if res.Category != "translation" {
		t.Errorf("category = %q, want translation", res.Category)
	}
}

func TestRun_ModelErrorFallsBackToHeuristic(t *testing.T) {
	p := newPipeline(t, "", errors.New("model unavailable"))

	res := p.Run(context.Background(), "run ls -la in the shell")
	if res.Source != "heuristic" {
		t.Errorf("source = %q, want heuristic", res.Source)
	}
	if res.Category != "shell_command" {
		t.Errorf("category = %q, want shell_command", res.Category)
	}
}

func TestRun_NilGatewayUsesHeuristic(t *testing.T) {
	p, err := New(nil, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := p.Run(context.Background(), "calculate the integral of x^2")
	if res.Source != "heuristic" {
		t.Errorf("source = %q, want heuristic", res.Source)
	}
	if res.Category != "math" {
		t.Errorf("category = %q, want math", res.Category)
	}
}

func TestRun_OversizedRewriteIsDiscarded(t *testing.T) {
	huge := ""
	for i := 0; i < 50; i++ {
		huge += "padding "
	}
	p := newPipeline(t, `{"category":"general_chat","confidence":0.5,"needs_tools":false,"rewritten":"`+huge+`","facts":[]}`, nil)

	res := p.Run(context.Background(), "hi there how are you")
	if res.Rewritten != "hi there how are you" {
		t.Errorf("rewritten = %q, want original message restored", res.Rewritten)
	}
}

func TestRun_MemoizesLastInput(t *testing.T) {
	calls := 0
	gw := gateway.New(nil, nil, &countingProvider{calls: &calls, content: `{"category":"general_chat","confidence":0.5,"needs_tools":false,"rewritten":"hi","facts":[]}`})
	p, err := New(gw, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.Run(context.Background(), "hi there, how are you")
	p.Run(context.Background(), "hi there, how are you")
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (second Run should hit the memo cache)", calls)
	}

	p.Run(context.Background(), "this is a different message")
	if calls != 2 {
		t.Errorf("calls = %d, want 2 after a new input", calls)
	}
}

type countingProvider struct {
	calls   *int
	content string
}

func (c *countingProvider) Name() string     { return "counting" }
func (c *countingProvider) Models() []string { return nil }
func (c *countingProvider) Complete(ctx context.Context, req gateway.LLMRequest) (*gateway.LLMResponse, error) {
	*c.calls++
	return &gateway.LLMResponse{Content: c.content}, nil
}
func (c *countingProvider) Embed(ctx context.Context, text string) (*gateway.EmbedResponse, error) {
	return nil, gateway.ErrNotSupported
}

func TestHeuristicCategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"write a new skill for checking weather", "skill_writing"},
		{"fix the error: nil pointer dereference", "debugging"},
		{"write a function to sort a list", "coding"},
		{"sudo apt install curl", "shell_command"},
		{"calculate the derivative of x^3", "math"},
		{"search for the latest news", "web_search"},
		{"please summarize this article", "summarization"},
		{"translate hello in french", "translation"},
		{"what is the plan for tomorrow", "planning"},
		{"hello, how are you?", "general_chat"},
	}
	for _, tt := range tests {
		if got := heuristicCategory(tt.text); got != tt.want {
			t.Errorf("heuristicCategory(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestNeedsTools(t *testing.T) {
	if !needsTools("search for today's weather") {
		t.Error("expected needs_tools = true")
	}
	if needsTools("tell me a joke") {
		t.Error("expected needs_tools = false")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no json here", ""},
		{`prefix {"a":{"b":2}} suffix`, `{"a":{"b":2}}`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
