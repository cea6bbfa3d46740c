package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sentineld/sentinel/internal/executor"
	"github.com/sentineld/sentinel/internal/security"
	"github.com/sentineld/sentinel/internal/store"
)

type chatRequest struct {
	Message string `json:"message"`
}

// followUpCategories names the classification categories that earn the
// user's turn a low-priority background follow-up task, mirroring the
// prototype's behavior of quietly continuing research-flavored requests
// after the foreground reply is delivered.
var followUpCategories = map[string]bool{
	"research":     true,
	"web_search":   true,
	"planning":     true,
	"agentic_task": true,
	"coding":       true,
}

// handleChat serves POST /chat: the assistant's primary turn, streamed
// back as server-sent events. Event types mirror the prototype's
// _chat_stream: stage, quick_ack, thinking, token, proactive, stage_done,
// final. Per-skill-call events are not emitted — the Executor's public
// Result only exposes an aggregate tool-call count, not an enumerable
// per-call log, so ToolCalls rides along on the final event instead.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	source := r.RemoteAddr
	if !s.deps.RateLimiter.Allow(source) {
		s.deps.Audit.Log(security.AuditRateLimit, security.SeverityWarn, "", source, "chat", "/chat", false, nil)
		writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}

	clean := s.deps.Sanitizer.Sanitize(req.Message)
	if clean.Blocked {
		s.deps.Audit.Log(security.AuditInputBlocked, security.SeverityWarn, "", source, "chat", "/chat", false,
			map[string]string{"reason": clean.BlockReason})
		writeError(w, http.StatusBadRequest, clean.BlockReason)
		return
	}
	req.Message = clean.Clean
	for _, warning := range clean.Warnings {
		s.deps.Log.Warn("chat: sanitizer warning", "warning", warning)
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ctx := r.Context()

	sse.send("quick_ack", map[string]string{"message": "Got it."})

	s.deps.Heartbeat.PauseForUser(ctx, 2*time.Minute)
	defer s.deps.Heartbeat.ResumeAfterUser()

	sse.send("stage", map[string]string{"stage": "Remembering what I know about you..."})
	s.deps.Facts.ExtractHeuristic(req.Message)
	userCtx := s.deps.Facts.ContextForPrompt()

	sse.send("stage", map[string]string{"stage": "Figuring out what you need..."})
	pre := s.deps.Pre.Run(ctx, req.Message)

	decision := s.deps.Router.RouteToModel(ctx, pre.Category, false)
	fallback := decision.FallbackChain(s.deps.Router.GetFallback(ctx, decision.Model))

	sse.send("stage", map[string]string{"stage": fmt.Sprintf("%s is thinking...", s.deps.Persona.Name())})

	past, err := s.deps.Store.SearchInteractions(ctx, req.Message, 3)
	if err != nil {
		s.deps.Log.Warn("chat: past interaction search failed", "error", err)
	}
	pastCtx := formatPastInteractions(past)

	systemPrompt := s.deps.Persona.SystemPrompt(decision.Model, pre.Category, userCtx, pastCtx)
	prompt := req.Message
	if pre.Rewritten != "" {
		prompt = pre.Rewritten
	}

	tokenCh := make(chan string, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for tok := range tokenCh {
			sse.send("token", map[string]string{"token": tok})
		}
	}()

	start := time.Now()
	res, err := s.deps.Exec.RunValidated(ctx, executor.ValidatedRequest{
		RunRequest: executor.RunRequest{
			Prompt:        prompt,
			System:        systemPrompt,
			Model:         decision.Model,
			FallbackChain: fallback,
			Category:      pre.Category,
			TokenBudget:   decision.TokenBudget,
			Stream:        tokenCh,
		},
		MaxRetries: executor.DefaultUserRetries,
	})
	close(tokenCh)
	<-done

	if err != nil {
		sse.send("final", map[string]any{"output": "Something went wrong on my end: " + err.Error(), "success": false})
		return
	}

	for _, thought := range res.Thinking {
		sse.send("thinking", map[string]string{"text": thought})
	}
	sse.send("stage_done", map[string]string{"stage": "response"})

	duration := time.Since(start)
	sse.send("final", map[string]any{
		"output":     res.Output,
		"success":    res.Success,
		"model":      res.Model,
		"tool_calls": res.ToolCalls,
	})

	if _, err := s.deps.Store.LogInteraction(ctx, store.Interaction{
		UserInput:  req.Message,
		Output:     res.Output,
		Category:   pre.Category,
		ModelUsed:  res.Model,
		Success:    res.Success,
		ToolCalls:  res.ToolCalls,
		DurationMs: duration.Milliseconds(),
	}); err != nil {
		s.deps.Log.Warn("chat: failed to log interaction", "error", err)
	}

	if message, ok := s.deps.Proactive.CheckAfterMessage(ctx, req.Message, res.Output); ok {
		sse.send("proactive", map[string]string{"message": message})
	}

	if followUpCategories[pre.Category] {
		_, err := s.deps.Store.Add(ctx, store.NewTaskParams{
			Title:       "Follow up on: " + truncateChat(req.Message, 80),
			Description: fmt.Sprintf("The user asked (category=%s): %s\n\nContinue or deepen this in the background if there's more value to surface.", pre.Category, req.Message),
			TaskType:    store.TaskResearch,
			Priority:    store.PriorityLow,
		})
		if err != nil {
			s.deps.Log.Warn("chat: failed to enqueue follow-up task", "error", err)
		}
	}
}

func formatPastInteractions(past []store.Interaction) string {
	if len(past) == 0 {
		return "No relevant past interactions."
	}
	var b strings.Builder
	for _, in := range past {
		fmt.Fprintf(&b, "- User: %s\n  You: %s\n", truncateChat(in.UserInput, 160), truncateChat(in.Output, 160))
	}
	return b.String()
}

func truncateChat(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
