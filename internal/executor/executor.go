// Package executor drives a model through alternating reasoning and skill
// calls until it produces a FINAL answer, asks to ESCALATE to a bigger
// model, or exhausts its tool-call budget. The wire protocol between the
// model and the Executor is text, not a structured tool-call API:
//
//	SKILL: {"name": "...", "args": {...}}   — invoke a skill
//	FINAL: <answer>                          — terminate successfully
//	ESCALATE: <reason>                       — restart on a bigger model
//
// <think>...</think> blocks are stripped before parsing and kept as a
// separate thinking log, the way DeepSeek-R1-style reasoning models emit
// their scratch work inline with the reply.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/observability"
	"github.com/sentineld/sentinel/internal/security"
	"github.com/sentineld/sentinel/internal/skills"
)

const (
	// executorAgentID identifies this process to the PolicyEnforcer. There
	// is only one agent today, so it's a constant rather than a field.
	executorAgentID = "sentineld"

	// maxConcurrentSkillRuns caps how many skills this Executor may have
	// in flight at once (a chat turn and a heartbeat task can both be
	// running skills concurrently) before the policy gate starts denying.
	maxConcurrentSkillRuns = 4
)

const (
	toolUsePrompt = `Task: %s

Remember:
- Use SKILL: {"name": "...", "args": {...}} to call tools
- Chain multiple skill calls as needed
- Output FINAL: <answer> when complete
- Never give up — try different approaches if one fails
`
	continueNudge = "Continue. Use a SKILL if you need information, or output FINAL: when done."
	forceNudge    = "You have not used any skills or given a final answer. Either call a SKILL or output your best answer as:\nFINAL: <answer>"
	nudgeLimit    = 3

	defaultMaxToolCalls = 20
)

// Result is the outcome of one Run.
type Result struct {
	Output        string   `json:"output"`
	Success       bool     `json:"success"`
	FailureReason string   `json:"failure_reason,omitempty"`
	ToolCalls     int      `json:"tool_calls"`
	Model         string   `json:"model"`
	Thinking      []string `json:"thinking,omitempty"`
}

// RunRequest parameterizes one execution turn.
type RunRequest struct {
	Prompt        string
	System        string
	Model         string
	FallbackChain []string // models to try on OOM or ESCALATE, in order
	Category      string   // drives post-run validation
	TokenBudget   int
	Stream        chan<- string // optional: receives reply tokens as they arrive

	// PauseCheck, if set, is polled between tool calls. When it returns
	// true the Run loop stops and returns a partial result instead of
	// making another model call — how a heartbeat-driven task notices a
	// user pre-emption mid-execution.
	PauseCheck func() bool
}

// pausedOutput is returned when PauseCheck reports a pre-emption. The
// substring "Task paused" is part of the contract callers match on.
const pausedOutput = "Task paused: pre-empted by user activity."

// Executor runs the agentic tool-use loop against a Model Gateway and a
// Skill Registry.
type Executor struct {
	gateway      *gateway.Gateway
	skills       *skills.SkillRegistry
	log          *observability.Logger
	metrics      *observability.Metrics
	maxToolCalls int

	policy         *security.PolicyEnforcer
	validator      *security.SkillValidator
	forbiddenTools []string
}

// New creates an Executor. registry may be nil — a nil registry makes
// every SKILL call fail with "no skills available". A PolicyEnforcer and
// SkillValidator are always attached so every skill dispatch clears a
// concurrency/forbidden-tool/blocklist gate before it runs; callers that
// want different policy need SetForbiddenTools or direct access to the
// fields these wrap, not a bypass.
func New(gw *gateway.Gateway, registry *skills.SkillRegistry, log *observability.Logger, metrics *observability.Metrics) *Executor {
	if log == nil {
		log = observability.NewLogger("executor", nil)
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0, nil)
	}
	return &Executor{
		gateway:      gw,
		skills:       registry,
		log:          log,
		metrics:      metrics,
		maxToolCalls: defaultMaxToolCalls,
		policy:       security.NewPolicyEnforcer(),
		validator:    security.NewSkillValidator(security.ValidatorConfig{}),
	}
}

// SetMaxToolCalls overrides the default tool-call budget (20), mostly for tests.
func (e *Executor) SetMaxToolCalls(n int) {
	if n > 0 {
		e.maxToolCalls = n
	}
}

// SetForbiddenTools names skills the PolicyEnforcer must always deny,
// regardless of what's registered — an operator-level kill switch
// distinct from SkillValidator's per-skill BlockSkill/UnblockSkill.
func (e *Executor) SetForbiddenTools(names []string) {
	e.forbiddenTools = names
}

// Validator exposes the SkillValidator so a caller (e.g. the manifest
// watcher) can block a skill that fails validation at load time.
func (e *Executor) Validator() *security.SkillValidator {
	return e.validator
}

// Run drives one turn to completion: FINAL, ESCALATE, OOM, or budget
// exhaustion. It never returns a non-nil error for model-side failures —
// those come back as a Result with Success=false — only for context
// cancellation or a gateway misconfiguration (e.g. no backends at all).
func (e *Executor) Run(ctx context.Context, req RunRequest) (*Result, error) {
	messages := []gateway.Message{
		{Role: "user", Content: fmt.Sprintf(toolUsePrompt, req.Prompt)},
	}

	var thinkingLog []string
	var lastReply string
	toolCalls := 0
	nudgeCount := 0
	model := req.Model

	for toolCalls < e.maxToolCalls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.PauseCheck != nil && req.PauseCheck() {
			e.metrics.Increment("executor.paused")
			return &Result{
				Output:        pausedOutput,
				Success:       false,
				FailureReason: "paused for user activity",
				ToolCalls:     toolCalls,
				Model:         model,
				Thinking:      thinkingLog,
			}, nil
		}

		messages = compressHistory(messages)

		callMessages := messages
		if req.System != "" {
			callMessages = append([]gateway.Message{{Role: "system", Content: req.System}}, messages...)
		}

		start := time.Now()
		resp, err := e.chat(ctx, callMessages, model, req.TokenBudget, req.Stream)
		elapsed := time.Since(start)

		if err != nil {
			if gateway.IsOOM(err) {
				e.log.Warn("executor: model OOM", "model", model)
				e.metrics.Increment("executor.oom")
				return &Result{
					Output:        lastReply,
					Success:       false,
					FailureReason: fmt.Sprintf("OOM: %v", err),
					ToolCalls:     toolCalls,
					Model:         model,
					Thinking:      thinkingLog,
				}, nil
			}
			if ctx.Err() != nil || len(e.gateway.Backends()) == 0 {
				return nil, fmt.Errorf("executor: chat: %w", err)
			}
			return &Result{
				Output:        lastReply,
				Success:       false,
				FailureReason: fmt.Sprintf("model call failed: %v", err),
				ToolCalls:     toolCalls,
				Model:         model,
				Thinking:      thinkingLog,
			}, nil
		}
		e.metrics.Record(observability.MetricLatency, float64(elapsed.Milliseconds()), observability.Labels{"model": model})
		e.metrics.Record(observability.MetricCost, resp.CostUSD, observability.Labels{"model": model})

		raw := resp.Content
		lastReply = raw

		thinking, reply := stripThink(raw)
		if thinking != "" {
			thinkingLog = append(thinkingLog, thinking)
		}
		messages = append(messages, gateway.Message{Role: "assistant", Content: raw})

		if final := parseFinal(reply); final != "" {
			e.metrics.Increment("executor.final")
			return &Result{Output: final, Success: true, ToolCalls: toolCalls, Model: model, Thinking: thinkingLog}, nil
		}

		if reason := parseEscalate(reply); reason != "" {
			target, remaining := nextModel(req.FallbackChain)
			if target == "" {
				return &Result{
					Output:        extractBestOutput(raw),
					Success:       false,
					FailureReason: fmt.Sprintf("escalation requested but no larger model available: %s", reason),
					ToolCalls:     toolCalls,
					Model:         model,
					Thinking:      thinkingLog,
				}, nil
			}
			e.log.Info("executor: escalating", "from", model, "to", target, "reason", reason)
			e.metrics.Increment("executor.escalate")
			escalated := req
			escalated.Model = target
			escalated.FallbackChain = remaining
			return e.Run(ctx, escalated)
		}

		if raw := parseSkillJSON(reply); raw != "" {
			result := e.runSkill(ctx, raw)
			messages = append(messages, gateway.Message{
				Role:    "user",
				Content: fmt.Sprintf("Skill result:\n%s\n\nContinue. Use more skills or output FINAL: when done.", truncateSkillResult(result)),
			})
			toolCalls++
			nudgeCount = 0
			continue
		}

		nudgeCount++
		if nudgeCount >= nudgeLimit {
			messages = append(messages, gateway.Message{Role: "user", Content: forceNudge})
		} else {
			messages = append(messages, gateway.Message{Role: "user", Content: continueNudge})
		}
	}

	e.metrics.Increment("executor.budget_exhausted")
	return &Result{
		Output:        extractBestOutput(lastReply),
		Success:       false,
		FailureReason: fmt.Sprintf("max tool calls (%d) reached", e.maxToolCalls),
		ToolCalls:     toolCalls,
		Model:         model,
		Thinking:      thinkingLog,
	}, nil
}

// chat performs one model call, forwarding a word-chunked stream to
// req.Stream when set, and returns the accumulated response either way.
func (e *Executor) chat(ctx context.Context, messages []gateway.Message, model string, tokenBudget int, stream chan<- string) (*gateway.LLMResponse, error) {
	req := gateway.LLMRequest{Messages: messages, Model: model, Temperature: 0.7, MaxTokens: tokenBudget}
	if stream == nil {
		return e.gateway.Chat(ctx, req)
	}

	var final *gateway.LLMResponse
	for chunk := range e.gateway.ChatStream(ctx, req) {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		if chunk.Delta != "" {
			stream <- chunk.Delta
		}
		if chunk.Done {
			final = chunk.Final
		}
	}
	if final == nil {
		return nil, fmt.Errorf("executor: stream closed without a final response")
	}
	return final, nil
}

// runSkill handles one SKILL: {...} block, returning the stringified
// result (or an ERROR: line) that gets fed back as the next user turn.
func (e *Executor) runSkill(ctx context.Context, rawJSON string) string {
	if len(rawJSON) > maxSkillJSONLen {
		return fmt.Sprintf("ERROR: SKILL JSON too large (%d bytes, max %d). Check your syntax and try again.", len(rawJSON), maxSkillJSONLen)
	}

	var call skillCall
	if err := json.Unmarshal([]byte(rawJSON), &call); err != nil {
		return fmt.Sprintf("ERROR: Malformed SKILL JSON: %v. Check your syntax and try again.", err)
	}

	if e.skills == nil {
		return "ERROR: no skills available."
	}
	skill := e.skills.Get(call.Name)
	if skill == nil {
		if e.skills.ReloadOnMiss(call.Name) {
			skill = e.skills.Get(call.Name)
		}
	}
	if skill == nil {
		return fmt.Sprintf("ERROR: unknown skill %q. Available skills: %s", call.Name, e.skillNames())
	}

	if e.validator.IsBlocked(call.Name) {
		return fmt.Sprintf("ERROR: skill %q is blocked by security policy.", call.Name)
	}
	if violation := e.policy.CheckExecution(executorAgentID, maxConcurrentSkillRuns, e.forbiddenTools, false, call.Name); violation != nil {
		e.log.SkillEvent("blocked", call.Name, "rule", violation.Rule, "details", violation.Details)
		return fmt.Sprintf("ERROR: skill %q denied by policy (%s): %s", call.Name, violation.Rule, violation.Details)
	}
	e.policy.AcquireRun(executorAgentID)
	defer e.policy.ReleaseRun(executorAgentID)

	e.log.SkillEvent("call", call.Name)
	start := time.Now()
	out, err := skill.Executor.Execute(ctx, skills.SkillInput{
		Goal:       call.Args["goal"],
		Parameters: call.Args,
	})
	if err != nil {
		e.log.SkillEvent("error", call.Name, "error", err.Error())
		return fmt.Sprintf("ERROR in skill execution: %v. Try a different approach.", err)
	}
	out.ElapsedMs = time.Since(start).Milliseconds()
	skill.RecordRun(out)
	e.log.SkillEvent("result", call.Name, "success", out.Success, "elapsed_ms", out.ElapsedMs)

	if !out.Success && out.Error != "" {
		return fmt.Sprintf("Skill error: %s. Try another approach.", out.Error)
	}
	return out.Result
}

func (e *Executor) skillNames() string {
	if e.skills == nil {
		return "(none)"
	}
	names := make([]string, 0)
	for _, s := range e.skills.List() {
		names = append(names, s.Meta.ID)
	}
	if len(names) == 0 {
		return "(none)"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

// nextModel pops the first entry off chain, returning it and the rest.
func nextModel(chain []string) (string, []string) {
	if len(chain) == 0 {
		return "", nil
	}
	return chain[0], chain[1:]
}
