package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// bedrockClaudeRequest mirrors the Anthropic-on-Bedrock wire format, which
// differs slightly from the native Anthropic API (no top-level "model").
type bedrockClaudeRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []bedrockMsg       `json:"messages"`
	Temperature      *float64           `json:"temperature,omitempty"`
}

type bedrockMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BedrockProvider implements LLMProvider over AWS Bedrock's
// InvokeModel API, serving Anthropic models hosted on Bedrock. It gives
// the Router's dynamic fallback chain a third installed-model source
// independent of the two direct-API backends.
type BedrockProvider struct {
	client       *bedrockruntime.Client
	region       string
	defaultModel string
}

// NewBedrockProvider creates a Bedrock provider using the default AWS
// credential chain (environment, shared config, or instance role).
func NewBedrockProvider(ctx context.Context, region, defaultModel string) (*BedrockProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	if defaultModel == "" {
		defaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	return &BedrockProvider{
		client:       bedrockruntime.NewFromConfig(cfg),
		region:       region,
		defaultModel: defaultModel,
	}, nil
}

// Name returns the provider name.
func (p *BedrockProvider) Name() string { return "bedrock" }

// Models returns the list of supported Bedrock model IDs.
func (p *BedrockProvider) Models() []string {
	return []string{
		"anthropic.claude-3-haiku-20240307-v1:0",
		"anthropic.claude-3-5-sonnet-20241022-v2:0",
	}
}

// Complete invokes an Anthropic model hosted on Bedrock.
func (p *BedrockProvider) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var systemPrompt string
	var msgs []bedrockMsg
	for _, m := range req.Messages {
		if m.Role == "system" {
			systemPrompt = m.Content
			continue
		}
		msgs = append(msgs, bedrockMsg{Role: m.Role, Content: m.Content})
	}

	body := bedrockClaudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           systemPrompt,
		Messages:         msgs,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("bedrock: marshal request: %w", err)
	}

	start := time.Now()
	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("bedrock: invoke model: %w", err)
	}

	var resp bedrockClaudeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("bedrock: unmarshal response: %w", err)
	}

	var textParts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}

	return &LLMResponse{
		Content:      strings.Join(textParts, ""),
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		LatencyMs:    latency,
		StopReason:   resp.StopReason,
		CostUSD:      claudeCalculateCost(model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}, nil
}

// Embed is not exposed by this provider; Bedrock embedding models (Titan)
// would need a separate request shape not used by this gateway.
func (p *BedrockProvider) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	return nil, ErrNotSupported
}
