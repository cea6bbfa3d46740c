package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// claudePricing maps model family to (input, output) cost per 1M tokens in USD.
var claudePricing = map[string][2]float64{
	"haiku":  {0.25, 1.25},
	"sonnet": {3.0, 15.0},
	"opus":   {15.0, 75.0},
}

// ClaudeOption configures a ClaudeProvider.
type ClaudeOption func(*ClaudeProvider)

// WithClaudeBaseURL overrides the API base URL (useful for testing against
// a local stub).
func WithClaudeBaseURL(url string) ClaudeOption {
	return func(p *ClaudeProvider) { p.baseURL = url }
}

// WithClaudeDefaultModel sets the default model when none is specified in
// the request.
func WithClaudeDefaultModel(model string) ClaudeOption {
	return func(p *ClaudeProvider) { p.defaultModel = model }
}

// ClaudeProvider implements LLMProvider over the Anthropic Messages API
// via the official anthropic-sdk-go client.
type ClaudeProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       anthropic.Client
}

// NewClaudeProvider creates a new Claude provider.
func NewClaudeProvider(apiKey string, opts ...ClaudeOption) *ClaudeProvider {
	p := &ClaudeProvider{
		apiKey:       apiKey,
		baseURL:      "https://api.anthropic.com",
		defaultModel: "claude-sonnet-4-20250514",
	}
	for _, opt := range opts {
		opt(p)
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithRequestTimeout(120 * time.Second),
	}
	p.client = anthropic.NewClient(clientOpts...)
	return p
}

// Name returns the provider name.
func (p *ClaudeProvider) Name() string { return "claude" }

// Models returns the list of supported models.
func (p *ClaudeProvider) Models() []string {
	return []string{
		"claude-haiku-3-5-20241022",
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
	}
}

// Complete sends a completion request via the Anthropic Messages API.
func (p *ClaudeProvider) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var systemPrompt string
	var msgs []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			systemPrompt = m.Content
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
			},
		})
	}

	start := time.Now()
	msg, err := p.client.Messages.New(ctx, params)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("claude: complete: %w", err)
	}

	result := &LLMResponse{
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		LatencyMs:    latency,
		StopReason:   string(msg.StopReason),
	}

	var textParts []string
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		case anthropic.ToolUseBlock:
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: variant.Input,
			})
		}
	}
	result.Content = strings.Join(textParts, "")
	result.CostUSD = claudeCalculateCost(result.Model, result.InputTokens, result.OutputTokens)
	return result, nil
}

// Embed is not offered by the Anthropic API.
func (p *ClaudeProvider) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	return nil, ErrNotSupported
}

// claudeCalculateCost computes USD cost based on model and token counts.
func claudeCalculateCost(model string, inputTokens, outputTokens int) float64 {
	var pricing [2]float64
	found := false
	for family, p := range claudePricing {
		if strings.Contains(model, family) {
			pricing = p
			found = true
			break
		}
	}
	if !found {
		pricing = claudePricing["sonnet"]
	}
	inputCost := float64(inputTokens) / 1_000_000 * pricing[0]
	outputCost := float64(outputTokens) / 1_000_000 * pricing[1]
	return inputCost + outputCost
}
