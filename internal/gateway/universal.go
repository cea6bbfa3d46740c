package gateway

// ---------------------------------------------------------------------------
// UniversalProvider — works with ANY OpenAI-compatible API endpoint.
//
// Supported backends (anything that speaks OpenAI /v1/chat/completions):
//   - Ollama          (http://localhost:11434)
//   - LM Studio       (http://localhost:1234)
//   - Together AI     (https://api.together.xyz)
//   - Groq            (https://api.groq.com/openai)
//   - OpenRouter      (https://openrouter.ai/api)
//   - vLLM/TGI        (http://localhost:8000)
//   - Any other local/remote OpenAI-compatible server
//
// The native providers (ClaudeProvider, OpenAIProvider, BedrockProvider)
// use their vendor SDKs; this one stays a thin hand-rolled HTTP client
// because it has to speak whatever dialect the user pointed it at, which
// no SDK covers generically.
// ---------------------------------------------------------------------------

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProviderConfig describes how to connect to an OpenAI-compatible endpoint.
type ProviderConfig struct {
	Name             string            `json:"name"`
	BaseURL          string            `json:"base_url"`
	APIKey           string            `json:"api_key,omitempty"`
	DefaultModel     string            `json:"default_model"`
	Models           []ModelConfig     `json:"models,omitempty"`
	AuthHeader       string            `json:"auth_header,omitempty"`
	AuthPrefix       string            `json:"auth_prefix,omitempty"`
	ExtraHeaders     map[string]string `json:"extra_headers,omitempty"`
	CompletionsPath  string            `json:"completions_path,omitempty"`
	TimeoutSeconds   int               `json:"timeout_seconds,omitempty"`
	MaxTokensDefault int               `json:"max_tokens_default,omitempty"`
}

// ModelConfig describes a single model available from a provider.
type ModelConfig struct {
	ID             string  `json:"id"`
	Tier           string  `json:"tier"`
	CostPer1K      float64 `json:"cost_per_1k"`
	InputCostPerM  float64 `json:"input_cost_per_m,omitempty"`
	OutputCostPerM float64 `json:"output_cost_per_m,omitempty"`
}

// UniversalProvider implements LLMProvider for any OpenAI-compatible endpoint.
type UniversalProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewUniversalProvider creates a provider from config.
func NewUniversalProvider(cfg ProviderConfig) *UniversalProvider {
	if cfg.CompletionsPath == "" {
		cfg.CompletionsPath = "/v1/chat/completions"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 120
	}
	if cfg.MaxTokensDefault <= 0 {
		cfg.MaxTokensDefault = 4096
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}
	if cfg.AuthPrefix == "" {
		cfg.AuthPrefix = "Bearer "
	}
	if len(cfg.Models) == 0 && cfg.DefaultModel != "" {
		cfg.Models = []ModelConfig{{ID: cfg.DefaultModel, Tier: "mid"}}
	}

	return &UniversalProvider{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// Name returns the provider name.
func (p *UniversalProvider) Name() string { return p.config.Name }

// Models returns the list of available model IDs.
func (p *UniversalProvider) Models() []string {
	var ids []string
	for _, m := range p.config.Models {
		ids = append(ids, m.ID)
	}
	return ids
}

// ModelEntries returns this provider's catalog as router-ready ModelEntry values.
func (p *UniversalProvider) ModelEntries() []ModelEntry {
	var entries []ModelEntry
	for _, m := range p.config.Models {
		tier := TierMid
		switch m.Tier {
		case "cheap":
			tier = TierCheap
		case "powerful":
			tier = TierPowerful
		}
		entries = append(entries, ModelEntry{
			ID: m.ID, Provider: p.config.Name, Tier: tier, CostPer1K: m.CostPer1K,
		})
	}
	return entries
}

type universalMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type universalToolDef struct {
	Type     string           `json:"type"`
	Function universalFuncDef `json:"function"`
}

type universalFuncDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type universalRequest struct {
	Model       string             `json:"model"`
	Messages    []universalMsg     `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	MaxTokens   *int               `json:"max_tokens,omitempty"`
	Tools       []universalToolDef `json:"tools,omitempty"`
}

type universalResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type universalErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a chat completion request over the OpenAI-compatible wire format.
func (p *UniversalProvider) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokensDefault
	}

	var msgs []universalMsg
	for _, m := range req.Messages {
		msgs = append(msgs, universalMsg{Role: m.Role, Content: m.Content})
	}

	ur := universalRequest{Model: model, Messages: msgs}
	if req.Temperature > 0 {
		t := req.Temperature
		ur.Temperature = &t
	}
	if maxTokens > 0 {
		ur.MaxTokens = &maxTokens
	}
	for _, tool := range req.Tools {
		ur.Tools = append(ur.Tools, universalToolDef{
			Type: "function",
			Function: universalFuncDef{
				Name: tool.Name, Description: tool.Description, Parameters: tool.InputSchema,
			},
		})
	}

	body, err := json.Marshal(ur)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.config.Name, err)
	}

	url := strings.TrimRight(p.config.BaseURL, "/") + p.config.CompletionsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.config.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set(p.config.AuthHeader, p.config.AuthPrefix+p.config.APIKey)
	}
	for k, v := range p.config.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w", p.config.Name, err)
	}
	defer resp.Body.Close()
	latency := time.Since(start).Milliseconds()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", p.config.Name, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp universalErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("%s: API error %d: %s: %s",
				p.config.Name, resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%s: API error %d: %s", p.config.Name, resp.StatusCode, string(respBody))
	}

	var ur2 universalResponse
	if err := json.Unmarshal(respBody, &ur2); err != nil {
		return nil, fmt.Errorf("%s: unmarshal response: %w", p.config.Name, err)
	}

	result := &LLMResponse{
		Model:        ur2.Model,
		InputTokens:  ur2.Usage.PromptTokens,
		OutputTokens: ur2.Usage.CompletionTokens,
		LatencyMs:    latency,
	}
	if len(ur2.Choices) > 0 {
		choice := ur2.Choices[0]
		result.Content = choice.Message.Content
		result.StopReason = choice.FinishReason
		for _, tc := range choice.Message.ToolCalls {
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID: tc.ID, Name: tc.Function.Name, Input: json.RawMessage(tc.Function.Arguments),
			})
		}
	}
	result.CostUSD = p.calculateCost(model, result.InputTokens, result.OutputTokens)
	return result, nil
}

// Embed is unsupported for most local-model backends reached through this
// provider; Ollama and LM Studio don't speak the embeddings endpoint this
// gateway expects.
func (p *UniversalProvider) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	return nil, ErrNotSupported
}

func (p *UniversalProvider) calculateCost(model string, inputTokens, outputTokens int) float64 {
	for _, m := range p.config.Models {
		if m.ID == model || strings.Contains(model, m.ID) {
			if m.InputCostPerM > 0 || m.OutputCostPerM > 0 {
				return float64(inputTokens)/1_000_000*m.InputCostPerM +
					float64(outputTokens)/1_000_000*m.OutputCostPerM
			}
			if m.CostPer1K > 0 {
				return float64(inputTokens+outputTokens) / 1000 * m.CostPer1K
			}
			return 0
		}
	}
	return 0
}

// ---------------------------------------------------------------------------
// Preset configs for popular OpenAI-compatible backends.
// ---------------------------------------------------------------------------

// OllamaConfig returns a ProviderConfig for Ollama (local).
func OllamaConfig(model string) ProviderConfig {
	if model == "" {
		model = "llama3.3"
	}
	return ProviderConfig{
		Name: "ollama", BaseURL: "http://localhost:11434", DefaultModel: model,
		Models: []ModelConfig{{ID: model, Tier: "mid", CostPer1K: 0}},
	}
}

// LMStudioConfig returns a ProviderConfig for LM Studio (local).
func LMStudioConfig(model string) ProviderConfig {
	if model == "" {
		model = "local-model"
	}
	return ProviderConfig{
		Name: "lmstudio", BaseURL: "http://localhost:1234", DefaultModel: model,
		Models: []ModelConfig{{ID: model, Tier: "mid", CostPer1K: 0}},
	}
}

// OpenRouterConfig returns a ProviderConfig for OpenRouter.
func OpenRouterConfig(apiKey string) ProviderConfig {
	return ProviderConfig{
		Name: "openrouter", BaseURL: "https://openrouter.ai/api", APIKey: apiKey,
		DefaultModel: "anthropic/claude-sonnet-4-20250514",
		Models: []ModelConfig{
			{ID: "anthropic/claude-haiku-3-5-20241022", Tier: "cheap", InputCostPerM: 0.80, OutputCostPerM: 4.0},
			{ID: "anthropic/claude-sonnet-4-20250514", Tier: "mid", InputCostPerM: 3.0, OutputCostPerM: 15.0},
			{ID: "openai/gpt-4o-mini", Tier: "cheap", InputCostPerM: 0.15, OutputCostPerM: 0.60},
		},
	}
}

// GroqConfig returns a ProviderConfig for Groq.
func GroqConfig(apiKey string) ProviderConfig {
	return ProviderConfig{
		Name: "groq", BaseURL: "https://api.groq.com/openai", APIKey: apiKey,
		DefaultModel: "llama-3.3-70b-versatile",
		Models: []ModelConfig{
			{ID: "llama-3.3-70b-versatile", Tier: "mid", InputCostPerM: 0.59, OutputCostPerM: 0.79},
			{ID: "llama-3.1-8b-instant", Tier: "cheap", InputCostPerM: 0.05, OutputCostPerM: 0.08},
		},
	}
}

// TogetherConfig returns a ProviderConfig for Together AI.
func TogetherConfig(apiKey string) ProviderConfig {
	return ProviderConfig{
		Name: "together", BaseURL: "https://api.together.xyz", APIKey: apiKey,
		DefaultModel: "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo",
		Models: []ModelConfig{
			{ID: "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo", Tier: "cheap", InputCostPerM: 0.18, OutputCostPerM: 0.18},
			{ID: "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo", Tier: "mid", InputCostPerM: 0.88, OutputCostPerM: 0.88},
		},
	}
}

// CustomConfig returns a ProviderConfig for a custom OpenAI-compatible endpoint.
func CustomConfig(name, baseURL, apiKey, model string) ProviderConfig {
	return ProviderConfig{
		Name: name, BaseURL: baseURL, APIKey: apiKey, DefaultModel: model,
		Models: []ModelConfig{{ID: model, Tier: "mid", CostPer1K: 0}},
	}
}
