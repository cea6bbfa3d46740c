package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiPricing maps model identifier substrings to (input, output) cost per 1M tokens.
var openaiPricing = map[string][2]float64{
	"gpt-4o-mini": {0.15, 0.60},
	"gpt-4o":      {2.50, 10.0},
}

// openaiEmbedPricing maps embedding model to cost per 1M tokens.
var openaiEmbedPricing = map[string]float64{
	"text-embedding-3-small": 0.02,
	"text-embedding-3-large": 0.13,
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL overrides the API base URL.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = url }
}

// WithOpenAIDefaultModel sets the default completion model.
func WithOpenAIDefaultModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.defaultModel = model }
}

// WithOpenAIEmbedModel sets the embedding model.
func WithOpenAIEmbedModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.embedModel = model }
}

// OpenAIProvider implements LLMProvider over the OpenAI Chat Completions
// and Embeddings APIs via the official openai-go client.
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	embedModel   string
	client       openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      "https://api.openai.com/v1",
		defaultModel: "gpt-4o",
		embedModel:   "text-embedding-3-small",
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithRequestTimeout(120*time.Second),
	)
	return p
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Models returns the list of supported completion models.
func (p *OpenAIProvider) Models() []string {
	return []string{"gpt-4o", "gpt-4o-mini"}
}

// Complete sends a chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
			},
		})
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("openai: complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}

	choice := resp.Choices[0]
	result := &LLMResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		LatencyMs:    latency,
		StopReason:   string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: []byte(tc.Function.Arguments),
		})
	}
	result.CostUSD = openaiCalculateCost(result.Model, result.InputTokens, result.OutputTokens)
	return result, nil
}

// Embed requests a text embedding vector.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	start := time.Now()
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: p.embedModel,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: empty embedding data")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	costPerM := openaiEmbedPricing[p.embedModel]
	return &EmbedResponse{
		Vector:    vec,
		Model:     resp.Model,
		CostUSD:   float64(resp.Usage.PromptTokens) / 1_000_000 * costPerM,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func openaiCalculateCost(model string, inputTokens, outputTokens int) float64 {
	var pricing [2]float64
	matched := 0
	for family, p := range openaiPricing {
		if strings.Contains(model, family) && len(family) > matched {
			pricing = p
			matched = len(family)
		}
	}
	if matched == 0 {
		pricing = openaiPricing["gpt-4o"]
	}
	inputCost := float64(inputTokens) / 1_000_000 * pricing[0]
	outputCost := float64(outputTokens) / 1_000_000 * pricing[1]
	return inputCost + outputCost
}
