// Package prepipeline runs the single fused classify+rewrite+extract call
// that replaces three serial model calls with one: given a raw user
// message, it returns the message's category, whether it needs tools, a
// clarified rewrite, and any facts about the user stated in passing.
package prepipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/observability"
)

// Categories lists every task category the router and executor recognize.
var Categories = []string{
	"general_chat", "coding", "debugging", "math", "reasoning",
	"summarization", "web_search", "data_analysis", "creative_writing",
	"translation", "planning", "shell_command", "file_management",
	"image_description", "screenshot_analysis", "task_management",
	"research", "skill_writing", "agentic_task", "error_recovery",
}

// FactCategories lists the categories a user fact can be filed under.
var FactCategories = []string{
	"name", "location", "occupation", "interests", "family",
	"health", "schedule", "preferences", "goals", "projects",
	"skills", "technology",
}

const mergedPrompt = `You are a fast routing pre-processor. Given a user message, return ONE JSON object doing three jobs at once.

CATEGORIES: %s

CATEGORY HINTS:
- coding = write new code | debugging = fix broken code | shell_command = run system commands
- skill_writing = create new agent skill/tool | agentic_task = multi-step autonomous work
- research = deep investigation | web_search = quick factual lookup
- general_chat = conversation, questions, anything else

USER MESSAGE: %s

Return ONLY this JSON (no markdown, no explanation):
{
  "category": "<one category>",
  "confidence": <0.0-1.0>,
  "needs_tools": <true if web search, file ops, code exec needed>,
  "rewritten": "<rewrite to be clearer and more precise, or copy original if already clear>",
  "facts": [
    {"category": "<%s>", "fact": "<explicit fact about the user if stated>"}
  ]
}

facts array: only include if the message explicitly states something about the user (name, job, location, etc). Empty array [] if nothing extractable.`

// resultSchemaJSON is the JSON Schema the model's raw reply must satisfy
// before it's trusted; anything that fails validation falls through to
// the heuristic classifier instead.
const resultSchemaJSON = `{
  "type": "object",
  "required": ["category", "rewritten"],
  "properties": {
    "category": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "needs_tools": {"type": "boolean"},
    "rewritten": {"type": "string"},
    "facts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "category": {"type": "string"},
          "fact": {"type": "string"}
        }
      }
    }
  }
}`

// Fact is a single piece of user-stated information extracted in passing.
type Fact struct {
	Category string `json:"category"`
	Fact     string `json:"fact"`
}

// Result is the outcome of a pre-pipeline run.
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	NeedsTools bool    `json:"needs_tools"`
	Rewritten  string  `json:"rewritten"`
	Facts      []Fact  `json:"facts"`
	Source     string  `json:"_source"` // "llm" or "heuristic"
}

// rawResult mirrors the wire shape the model is asked to produce.
type rawResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	NeedsTools bool    `json:"needs_tools"`
	Rewritten  string  `json:"rewritten"`
	Facts      []Fact  `json:"facts"`
}

// PrePipeline runs the fused classification call. It memoizes the last
// result for the last input string, since callers (classify, rewrite,
// extract-facts) historically asked for these values across three
// separate calls against the same message.
type PrePipeline struct {
	mu     sync.Mutex
	gw     *gateway.Gateway
	model  string
	schema *jsonschema.Schema
	log    *observability.Logger

	lastInput  string
	lastResult *Result
}

// New creates a PrePipeline bound to a Gateway. model may be empty, in
// which case the Gateway's default backend model is used.
func New(gw *gateway.Gateway, model string, log *observability.Logger) (*PrePipeline, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(resultSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("prepipeline: unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("prepipeline.json", doc); err != nil {
		return nil, fmt.Errorf("prepipeline: add schema resource: %w", err)
	}
	schema, err := c.Compile("prepipeline.json")
	if err != nil {
		return nil, fmt.Errorf("prepipeline: compile schema: %w", err)
	}
	if log == nil {
		log = observability.NewLogger("prepipeline", nil)
	}
	return &PrePipeline{gw: gw, model: model, schema: schema, log: log}, nil
}

// Run classifies, rewrites, and extracts facts from a user message in a
// single model call, falling back to heuristics on any failure: an empty
// Gateway, a malformed reply, or a reply that fails schema validation.
// A nil PrePipeline always uses the heuristics.
func (p *PrePipeline) Run(ctx context.Context, userMessage string) *Result {
	if p == nil {
		return p.heuristic(userMessage)
	}
	p.mu.Lock()
	if p.lastInput == userMessage && p.lastResult != nil {
		r := *p.lastResult
		p.mu.Unlock()
		return &r
	}
	p.mu.Unlock()

	result := p.run(ctx, userMessage)

	p.mu.Lock()
	p.lastInput = userMessage
	p.lastResult = result
	p.mu.Unlock()

	return result
}

// shortMessageWords is the word-count threshold below which a message skips
// the model call entirely. Mirrors the original prototype's
// skip_heavy = len(user_message.split()) < 4.
const shortMessageWords = 4

func (p *PrePipeline) run(ctx context.Context, userMessage string) *Result {
	if p.gw == nil || len(strings.Fields(userMessage)) < shortMessageWords {
		return p.heuristic(userMessage)
	}

	truncated := userMessage
	if len(truncated) > 400 {
		truncated = truncated[:400]
	}
	prompt := fmt.Sprintf(mergedPrompt, strings.Join(Categories, ", "), truncated, strings.Join(FactCategories, "|"))

	resp, err := p.gw.Generate(ctx, prompt, func(req *gateway.LLMRequest) {
		req.Model = p.model
		req.Temperature = 0.1
		req.MaxTokens = 200
	})
	if err != nil {
		p.log.Warn("pre-pipeline model call failed, using heuristic", "err", err.Error())
		return p.heuristic(userMessage)
	}

	jsonStr := extractJSON(resp.Content)
	if jsonStr == "" {
		p.log.Warn("pre-pipeline reply had no JSON, using heuristic")
		return p.heuristic(userMessage)
	}

	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(jsonStr))
	if err != nil {
		p.log.Warn("pre-pipeline reply not valid JSON, using heuristic", "err", err.Error())
		return p.heuristic(userMessage)
	}
	if err := p.schema.Validate(parsed); err != nil {
		p.log.Warn("pre-pipeline reply failed schema validation, using heuristic", "err", err.Error())
		return p.heuristic(userMessage)
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		p.log.Warn("pre-pipeline reply re-unmarshal failed, using heuristic", "err", err.Error())
		return p.heuristic(userMessage)
	}

	if !isKnownCategory(raw.Category) {
		raw.Category = heuristicCategory(userMessage)
	}
	rewritten := strings.TrimSpace(raw.Rewritten)
	if rewritten == "" || len(rewritten) > len(userMessage)*5 {
		rewritten = userMessage
	}
	if raw.Facts == nil {
		raw.Facts = []Fact{}
	}

	return &Result{
		Category:   raw.Category,
		Confidence: raw.Confidence,
		NeedsTools: raw.NeedsTools,
		Rewritten:  rewritten,
		Facts:      raw.Facts,
		Source:     "llm",
	}
}

// heuristic classifies and routes a message with no model call at all —
// used when the Gateway is unavailable or its reply couldn't be trusted.
func (p *PrePipeline) heuristic(userMessage string) *Result {
	return &Result{
		Category:   heuristicCategory(userMessage),
		Confidence: 0.5,
		NeedsTools: needsTools(userMessage),
		Rewritten:  userMessage,
		Facts:      []Fact{},
		Source:     "heuristic",
	}
}

func isKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

var heuristicRules = []struct {
	keywords []string
	category string
}{
	{[]string{"write a skill", "new skill", "new tool", "create a skill"}, "skill_writing"},
	{[]string{"debug", "fix this", "fix the", "error:", "traceback", "exception"}, "debugging"},
	{[]string{"write a ", "create a ", "build a ", "implement "}, "coding"},
	{[]string{"def ", "class ", "function(", "import "}, "coding"},
	{[]string{"bash", "shell", "sudo ", "apt ", "pip install", "systemctl"}, "shell_command"},
	{[]string{"calculate", "solve", "integral", "derivative", "equation"}, "math"},
	{[]string{"search for", "look up", "find me", "what is the latest"}, "web_search"},
	{[]string{"summarize", "tldr", "summary", "shorten"}, "summarization"},
	{[]string{"translate", "in french", "in spanish", "in german"}, "translation"},
	{[]string{"plan", "schedule", "roadmap", "steps to", "how do i"}, "planning"},
	{[]string{"research", "investigate", "deep dive", "tell me everything"}, "research"},
	{[]string{"screenshot", "what's on screen", "what do you see"}, "screenshot_analysis"},
	{[]string{"analyze", ".csv", "dataframe", "dataset", "graph"}, "data_analysis"},
}

func heuristicCategory(text string) string {
	t := strings.ToLower(text)
	for _, rule := range heuristicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.category
			}
		}
	}
	return "general_chat"
}

var toolSignals = []string{
	"search", "fetch", "download", "run", "execute", "install",
	"file", "read", "write", "open", "browse", "screenshot",
	"latest", "current", "today", "news", "weather", "price",
}

func needsTools(text string) bool {
	t := strings.ToLower(text)
	for _, s := range toolSignals {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

// extractJSON pulls the first balanced {...} object out of text, handling
// markdown code fences the model might wrap its reply in.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
