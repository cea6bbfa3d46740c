package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/skills"
)

// SkillExecutor wraps an MCP tool as a skills.SkillExecutor, so a tool
// exposed by any connected MCP server can be called exactly like a
// native skill from the executor's SKILL: protocol.
type SkillExecutor struct {
	registry   *Registry
	serverName string
	toolName   string
}

// NewSkillExecutor creates a SkillExecutor that delegates to an MCP tool.
func NewSkillExecutor(registry *Registry, serverName, toolName string) *SkillExecutor {
	return &SkillExecutor{
		registry:   registry,
		serverName: serverName,
		toolName:   toolName,
	}
}

// Execute invokes the MCP tool and returns a SkillOutput.
func (e *SkillExecutor) Execute(ctx context.Context, input skills.SkillInput) (*skills.SkillOutput, error) {
	start := time.Now()

	args := map[string]any{
		"goal":    input.Goal,
		"context": input.Context,
	}
	for k, v := range input.Parameters {
		args[k] = v
	}

	result, err := e.registry.CallTool(ctx, e.serverName, e.toolName, args)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return &skills.SkillOutput{
			Success:   false,
			Error:     err.Error(),
			ElapsedMs: elapsed,
		}, err
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Text != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(block.Text)
		}
	}

	return &skills.SkillOutput{
		Result:    text.String(),
		Success:   !result.IsError,
		ElapsedMs: elapsed,
	}, nil
}

// RegisterTools discovers tools from every connected MCP server and
// registers each as a skill, named mcp_<server>_<tool> so it can never
// collide with a native skill ID.
func RegisterTools(registry *Registry, skillRegistry *skills.SkillRegistry) int {
	count := 0
	for serverName, tools := range registry.AllTools() {
		for _, tool := range tools {
			skillID := fmt.Sprintf("mcp_%s_%s", serverName, tool.Name)
			if skillRegistry.Get(skillID) != nil {
				continue
			}

			skill := &skills.Skill{
				Executor: NewSkillExecutor(registry, serverName, tool.Name),
				Meta: skills.SkillMeta{
					ID:        skillID,
					Name:      fmt.Sprintf("[MCP:%s] %s", serverName, tool.Name),
					Type:      skills.SkillTypeLLM,
					Status:    skills.SkillStatusActive,
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				},
			}
			skillRegistry.Register(skill)
			count++
		}
	}
	return count
}

// ToolsToLLMFormat converts MCP tool definitions to the gateway's generic
// Tool shape, so the Gateway can advertise them to providers that support
// structured tool calling.
func ToolsToLLMFormat(tools []ToolDefinition) []gateway.Tool {
	out := make([]gateway.Tool, len(tools))
	for i, t := range tools {
		out[i] = gateway.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}
	}
	return out
}

// LLMToolCallToMCP converts a gateway tool call into the (name, args) pair
// CallTool expects.
func LLMToolCallToMCP(tc gateway.ToolCall) (string, map[string]any, error) {
	var args map[string]any
	if len(tc.Input) > 0 {
		if err := json.Unmarshal(tc.Input, &args); err != nil {
			return tc.Name, nil, fmt.Errorf("unmarshal tool call args: %w", err)
		}
	}
	return tc.Name, args, nil
}
